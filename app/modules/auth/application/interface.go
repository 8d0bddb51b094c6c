package authservice

import (
	"context"
	"time"

	authdomain "github.com/Black-And-White-Club/promptduel/app/modules/auth/domain"
)

// Service defines the auth operations exposed to handlers.
type Service interface {
	// Login checks the password and issues a session token.
	Login(ctx context.Context, username, password string) (*LoginResponse, error)

	// Authenticate validates a session token.
	Authenticate(ctx context.Context, token string) (authdomain.Identity, error)

	// CurrentUser returns the profile of an authenticated participant.
	CurrentUser(ctx context.Context, userID int64) (*UserView, error)

	// SeedUsers creates the contest seats SEAT001..SEATnnn.
	SeedUsers(ctx context.Context, count int) (int, error)
}

// Config holds auth service settings.
type Config struct {
	DefaultTTL time.Duration
	BcryptCost int
}

// UserView is the public projection of a user.
type UserView struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	TotalScore float64 `json:"total_score"`
}

// LoginResponse contains the session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}
