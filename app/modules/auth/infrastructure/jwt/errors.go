package authjwt

import "errors"

// ValidateToken returns exactly one of these.
var (
	ErrMalformedSession = errors.New("session token is malformed")
	ErrSessionExpired   = errors.New("session has expired")
	ErrSessionSignature = errors.New("session token was not signed by this server")
	// ErrNoParticipant means the token verified but its subject is not a seat user id.
	ErrNoParticipant = errors.New("session token names no participant")
)
