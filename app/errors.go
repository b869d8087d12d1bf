package app

import "errors"

var (
	// ErrBadCredentials covers both unknown email and wrong password so the
	// login response does not leak which one it was.
	ErrBadCredentials = errors.New("invalid email or password")
)
