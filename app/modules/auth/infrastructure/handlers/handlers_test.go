package authhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authservice "github.com/Black-And-White-Club/promptduel/app/modules/auth/application"
	authdomain "github.com/Black-And-White-Club/promptduel/app/modules/auth/domain"
	"go.opentelemetry.io/otel/trace/noop"
)

type FakeService struct {
	LoginFunc        func(ctx context.Context, username, password string) (*authservice.LoginResponse, error)
	AuthenticateFunc func(ctx context.Context, token string) (authdomain.Identity, error)
	CurrentUserFunc  func(ctx context.Context, userID int64) (*authservice.UserView, error)
}

func (f *FakeService) Login(ctx context.Context, username, password string) (*authservice.LoginResponse, error) {
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, username, password)
	}
	return nil, authservice.ErrInvalidCredentials
}

func (f *FakeService) Authenticate(ctx context.Context, token string) (authdomain.Identity, error) {
	if f.AuthenticateFunc != nil {
		return f.AuthenticateFunc(ctx, token)
	}
	return authdomain.Identity{}, authservice.ErrUnauthenticated
}

func (f *FakeService) CurrentUser(ctx context.Context, userID int64) (*authservice.UserView, error) {
	if f.CurrentUserFunc != nil {
		return f.CurrentUserFunc(ctx, userID)
	}
	return nil, authservice.ErrUnauthenticated
}

func (f *FakeService) SeedUsers(ctx context.Context, count int) (int, error) { return count, nil }

func TestAuthHandlers_HandleLogin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")

	tests := []struct {
		name         string
		body         string
		setupService func(*FakeService)
		wantStatus   int
		verify       func(t *testing.T, rr *httptest.ResponseRecorder)
	}{
		{
			name: "success",
			body: `{"username":"SEAT001","password":"S1"}`,
			setupService: func(s *FakeService) {
				s.LoginFunc = func(ctx context.Context, username, password string) (*authservice.LoginResponse, error) {
					return &authservice.LoginResponse{
						Token: "signed-token",
						User:  authservice.UserView{ID: 1, Username: username},
					}, nil
				}
			},
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var body struct {
					Success bool                 `json:"success"`
					Token   string               `json:"token"`
					User    authservice.UserView `json:"user"`
				}
				json.NewDecoder(rr.Body).Decode(&body)
				if !body.Success || body.Token != "signed-token" || body.User.Username != "SEAT001" {
					t.Errorf("unexpected body %+v", body)
				}
			},
		},
		{
			name:       "invalid json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing credentials",
			body: `{"username":""}`,
			setupService: func(s *FakeService) {
				s.LoginFunc = func(ctx context.Context, username, password string) (*authservice.LoginResponse, error) {
					return nil, authservice.ErrMissingCredentials
				}
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong password",
			body:       `{"username":"SEAT001","password":"nope"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "service error",
			body: `{"username":"SEAT001","password":"S1"}`,
			setupService: func(s *FakeService) {
				s.LoginFunc = func(ctx context.Context, username, password string) (*authservice.LoginResponse, error) {
					return nil, errors.New("db down")
				}
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{}
			if tt.setupService != nil {
				tt.setupService(svc)
			}
			h := NewAuthHandlers(svc, logger, tracer)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.HandleLogin(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.verify != nil {
				tt.verify(t, rr)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	svc := &FakeService{
		AuthenticateFunc: func(ctx context.Context, token string) (authdomain.Identity, error) {
			if token == "good" {
				return authdomain.Identity{ID: 5, Username: "SEAT005"}, nil
			}
			return authdomain.Identity{}, authservice.ErrUnauthenticated
		},
	}

	var seen authdomain.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authdomain.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AuthMiddleware(svc)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusNoContent},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = authdomain.Identity{}
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus == http.StatusNoContent && seen.ID != 5 {
				t.Errorf("expected identity 5 on context, got %+v", seen)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(0, 2)
	handler := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote string, identity *authdomain.Identity) int {
		req := httptest.NewRequest(http.MethodPost, "/api/submissions", nil)
		req.RemoteAddr = remote
		if identity != nil {
			req = req.WithContext(authdomain.WithIdentity(req.Context(), *identity))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := do("10.0.0.1:1234", nil); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := do("10.0.0.1:1234", nil); code != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", code)
	}
	if code := do("10.0.0.1:5678", nil); code != http.StatusTooManyRequests {
		t.Fatalf("burst exhausted: expected 429, got %d", code)
	}

	user := &authdomain.Identity{ID: 9}
	if code := do("10.0.0.1:1234", user); code != http.StatusOK {
		t.Fatalf("authenticated callers get their own bucket: expected 200, got %d", code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://contest.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://contest.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("preflight: expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://contest.example" {
		t.Errorf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot || rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("unexpected response for foreign origin: %d %q", rr.Code, rr.Header().Get("Access-Control-Allow-Origin"))
	}
}
