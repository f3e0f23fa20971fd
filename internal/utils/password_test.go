package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func legacyHash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func TestBcryptRoundTrip(t *testing.T) {
	h, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(h, "$2"))

	require.True(t, VerifyPassword(h, "s3cret!"))
	require.False(t, VerifyPassword(h, "wrong"))
	require.False(t, NeedsRehash(h))
}

func TestLegacySHA256StillVerifies(t *testing.T) {
	h := legacyHash("s3cret!")

	require.True(t, VerifyPassword(h, "s3cret!"))
	require.False(t, VerifyPassword(h, "wrong"))
	require.True(t, NeedsRehash(h))
}

func TestVerifyAndUpgradeRehashesLegacyOnly(t *testing.T) {
	ok, upgraded := VerifyAndUpgrade(legacyHash("s3cret!"), "s3cret!", bcrypt.MinCost)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(upgraded, "$2"))
	require.True(t, VerifyPassword(upgraded, "s3cret!"))

	h, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	ok, upgraded = VerifyAndUpgrade(h, "s3cret!", bcrypt.MinCost)
	require.True(t, ok)
	require.Empty(t, upgraded)
}

func TestVerifyAndUpgradeRejectsWrongPassword(t *testing.T) {
	ok, upgraded := VerifyAndUpgrade(legacyHash("s3cret!"), "wrong", bcrypt.MinCost)
	require.False(t, ok)
	require.Empty(t, upgraded)
}

func TestEmptyHashNeverVerifies(t *testing.T) {
	require.False(t, VerifyPassword("", ""))
	require.False(t, VerifyPassword("", "anything"))
}
