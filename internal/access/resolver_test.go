package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/uml-editor-backend/internal/repository"
)

// fakeShares is a ShareValidator backed by a map; it counts lookups so
// tests can assert the fast path never touches the registry.
type fakeShares struct {
	byToken map[string]string
	calls   int
}

func (f *fakeShares) ValidateToken(ctx context.Context, token string) (string, error) {
	f.calls++
	if id, ok := f.byToken[token]; ok {
		return id, nil
	}
	return "", repository.ErrNotFound
}

const (
	diagramID = "4f9d4a0e-8a5a-4d2b-b36e-1f6a9c2d7e01"
	otherID   = "93c1f2aa-5b77-4e6f-8f00-2d9b6a1c3e44"
)

func TestResolveNativeIDSkipsShareLookup(t *testing.T) {
	shares := &fakeShares{byToken: map[string]string{}}
	r := NewResolver(shares)

	got, err := r.Resolve(context.Background(), diagramID)
	require.NoError(t, err)
	require.Equal(t, diagramID, got)
	require.Zero(t, shares.calls, "native ids must resolve without consulting the registry")
}

func TestResolvePrefixedAndBareTokenAreEquivalent(t *testing.T) {
	shares := &fakeShares{byToken: map[string]string{"AB12CD34": diagramID}}
	r := NewResolver(shares)

	bare, err := r.Resolve(context.Background(), "AB12CD34")
	require.NoError(t, err)
	prefixed, err := r.Resolve(context.Background(), "shared-AB12CD34")
	require.NoError(t, err)
	require.Equal(t, bare, prefixed)
	require.Equal(t, diagramID, bare)
}

func TestResolveUnknownTokenIsNotFound(t *testing.T) {
	r := NewResolver(&fakeShares{byToken: map[string]string{}})

	_, err := r.Resolve(context.Background(), "shared-NOPE1234")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
