// Package access implements the identifier-resolution and authorization
// core: turning a client-supplied diagram reference into a canonical
// diagram id, and deciding whether the requesting principal may read,
// update or delete that diagram.
package access

type principalKind int

const (
	kindAnonymous principalKind = iota
	kindUser
	kindInvalid
)

// Principal is the identity context of a request. It is a closed variant:
// an authenticated user, a truly anonymous caller, or a caller that
// supplied a bearer token which failed verification. The last case is
// kept distinct because an invalid credential must always be rejected,
// never silently treated as "no token".
type Principal struct {
	kind   principalKind
	userID string
}

// AuthenticatedUser builds a principal for a verified bearer token.
func AuthenticatedUser(id string) Principal {
	return Principal{kind: kindUser, userID: id}
}

// Anonymous builds a principal for a request with no credential at all.
func Anonymous() Principal { return Principal{kind: kindAnonymous} }

// InvalidCredential builds a principal for a request whose bearer token
// was present but failed verification.
func InvalidCredential() Principal { return Principal{kind: kindInvalid} }

// UserID returns the authenticated user id and whether the principal is
// an authenticated user.
func (p Principal) UserID() (string, bool) {
	return p.userID, p.kind == kindUser
}

// IsAnonymous reports whether no credential was supplied.
func (p Principal) IsAnonymous() bool { return p.kind == kindAnonymous }

// IsInvalid reports whether a credential was supplied but rejected.
func (p Principal) IsInvalid() bool { return p.kind == kindInvalid }
