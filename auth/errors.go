package auth

import "errors"

var (
	// ErrNotAuthenticated means no user is signed in.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotPermitted means the signed-in user's permissions do not allow the
	// operation.
	ErrNotPermitted = errors.New("not permitted")
)
