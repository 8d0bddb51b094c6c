package authdomain

import (
	"context"
	"testing"
	"time"
)

func TestClaims_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "not expired (future)",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "expired (past)",
			expiresAt: time.Now().Add(-1 * time.Hour),
			want:      true,
		},
		{
			name:      "expired (just now)",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Claims{
				ExpiresAt: tt.expiresAt,
			}
			if got := c.IsExpired(); got != tt.want {
				t.Errorf("Claims.IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity on an empty context")
	}
	ctx := WithIdentity(context.Background(), Identity{ID: 7, Username: "SEAT007"})
	got, ok := IdentityFromContext(ctx)
	if !ok || got.ID != 7 || got.Username != "SEAT007" {
		t.Errorf("unexpected identity %+v (ok=%v)", got, ok)
	}
}
