package authhandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	authservice "github.com/Black-And-White-Club/promptduel/app/modules/auth/application"
	authdomain "github.com/Black-And-White-Club/promptduel/app/modules/auth/domain"
	"go.opentelemetry.io/otel/trace"
)

// AuthHandlers serves the login and session routes.
type AuthHandlers struct {
	service authservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(service authservice.Service, logger *slog.Logger, tracer trace.Tracer) *AuthHandlers {
	return &AuthHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AuthHandlers.HandleLogin")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrMissingCredentials):
			http.Error(w, "Username and password are required", http.StatusBadRequest)
		case errors.Is(err, authservice.ErrInvalidCredentials):
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		default:
			h.logger.ErrorContext(ctx, "HTTP Login failed", attr.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
		"user":       resp.User,
	})
}

// HandleMe returns the authenticated user's profile.
func (h *AuthHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := authdomain.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.service.CurrentUser(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, authservice.ErrUnauthenticated) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "Failed to load current user", attr.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "user": user})
}
