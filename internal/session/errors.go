package session

import "errors"

var (
	// ErrNotAuthenticated indicates an operation that needs a session was
	// called while no token pair is held.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrTokenDecode indicates the access token could not be decoded into
	// an identity.
	ErrTokenDecode = errors.New("access token decode failed")
)
