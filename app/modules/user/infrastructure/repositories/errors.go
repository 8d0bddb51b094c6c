package userdb

import "errors"

// Sentinel errors for the user repository layer.
// These indicate infrastructure-level outcomes (presence/absence of rows), not
// domain validation failures.
var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user record not found")
)
