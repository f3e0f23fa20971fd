package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash and a plain password. Two schemes
// are accepted: bcrypt (hashes starting with "$2") and legacy hex-encoded
// SHA-256 digests left over from an earlier deployment.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	sum := sha256.Sum256([]byte(plain))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(hash)) == 1
}

// NeedsRehash reports whether a stored hash should be upgraded to bcrypt.
// Anything that is not a bcrypt hash is treated as legacy.
func NeedsRehash(hash string) bool {
	return !strings.HasPrefix(hash, "$2")
}

// VerifyAndUpgrade verifies the password and, when the stored hash is a
// legacy scheme, returns a fresh bcrypt hash the caller should persist.
// The returned string is empty when no upgrade is needed or rehashing
// fails; login must not fail because of a failed upgrade.
func VerifyAndUpgrade(hash, plain string, cost int) (bool, string) {
	if !VerifyPassword(hash, plain) {
		return false, ""
	}
	if !NeedsRehash(hash) {
		return true, ""
	}
	upgraded, err := HashPassword(plain, cost)
	if err != nil {
		return true, ""
	}
	return true, upgraded
}
