// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by someone
// else, while ErrNotFound signals that an identifier or share
// reference does not resolve to any stored entity.
package repository

import "errors"

// ErrNotFound is returned when a record does not exist or a share
// reference fails to resolve. Handlers should translate this into an
// HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized is returned when a credential is missing or invalid
// where one is required. A bearer token that fails verification always
// surfaces as this error and is never downgraded to anonymous access.
// Handlers should translate this into an HTTP 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// ErrEmailExists is returned on registration when the email is taken.
var ErrEmailExists = errors.New("email already registered")

// ErrUsernameExists is returned on registration when the username is taken.
var ErrUsernameExists = errors.New("username already taken")

// ErrTokenExists is returned when a caller-supplied share token
// collides with an existing one.
var ErrTokenExists = errors.New("share token already exists")
