package utils // package utils provides helper functions for token creation and hashing

import (
	"errors" // sentinel errors for verification failures
	"time"   // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are short‑lived and encoded
// in the Authorization header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// ErrInvalidToken is returned when a bearer token fails verification for
// any reason: bad signature, wrong algorithm family, expiry, or a
// missing subject claim.
var ErrInvalidToken = errors.New("invalid token")

// hmacMethod maps a configured algorithm name onto a jwt signing method.
// Only the HMAC family is supported; anything unknown falls back to HS256.
func hmacMethod(alg string) *jwt.SigningMethodHMAC {
	switch alg {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

// NewAccessToken builds and signs an HMAC JWT for a user.  It takes the
// signing secret and algorithm name, the user ID, and a TTL in minutes.
// The JWT includes standard claims: subject (sub), expiration (exp) and
// issued at (iat).
func NewAccessToken(secret, alg, userID string, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(hmacMethod(alg), claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a bearer token and returns the
// subject (user ID).  The signing method must belong to the HMAC family;
// tokens signed with anything else are rejected regardless of signature.
func VerifyAccessToken(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
