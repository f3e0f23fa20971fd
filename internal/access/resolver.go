package access

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// SharedPrefix is the literal prefix clients may attach to a share token
// when using it in place of a diagram id, e.g. "shared-A1B2C3D4".
const SharedPrefix = "shared-"

// ShareValidator checks a share token and returns the canonical id of the
// diagram it is bound to. Implementations must re-evaluate revocation and
// expiry on every call and return repository.ErrNotFound for tokens that
// are unknown, revoked or expired.
type ShareValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// Resolver normalizes a client-supplied diagram reference into a
// canonical diagram id. Resolution never implies permission; the Gate
// decides that separately.
type Resolver struct {
	shares ShareValidator
}

func NewResolver(shares ShareValidator) *Resolver {
	return &Resolver{shares: shares}
}

// Resolve maps a reference to a diagram id. A reference that already is a
// well-formed native id is returned unchanged without consulting the
// share registry. Anything else is treated as a share token, with an
// optional "shared-" prefix stripped first.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return ref, nil
	}
	token := strings.TrimPrefix(ref, SharedPrefix)
	return r.shares.ValidateToken(ctx, token)
}
