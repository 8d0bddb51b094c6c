package authservice

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown username or wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrMissingCredentials is returned when username or password is blank.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrUnauthenticated is returned when a session token is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")
)
