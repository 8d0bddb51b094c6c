package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	authdomain "github.com/Black-And-White-Club/promptduel/app/modules/auth/domain"
	authjwt "github.com/Black-And-White-Club/promptduel/app/modules/auth/infrastructure/jwt"
	userdb "github.com/Black-And-White-Club/promptduel/app/modules/user/infrastructure/repositories"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

// AuthService implements the Service interface.
type AuthService struct {
	jwtProvider authjwt.Provider
	userRepo    userdb.Repository
	config      Config
	logger      *slog.Logger
	tracer      trace.Tracer
	db          bun.IDB

	// dummyHash is compared against when the username is unknown so both
	// paths cost one bcrypt comparison.
	dummyHash []byte
}

// NewService creates a new auth service.
func NewService(
	jwtProvider authjwt.Provider,
	userRepo userdb.Repository,
	config Config,
	logger *slog.Logger,
	tracer trace.Tracer,
	db bun.IDB,
) *AuthService {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 24 * time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), config.BcryptCost)
	return &AuthService{
		jwtProvider: jwtProvider,
		userRepo:    userRepo,
		config:      config,
		logger:      logger,
		tracer:      tracer,
		db:          db,
		dummyHash:   dummy,
	}
}

var _ Service = (*AuthService)(nil)

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			s.logger.WarnContext(ctx, "Login for unknown user", attr.String("username", username))
			return nil, ErrInvalidCredentials
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login with wrong password", attr.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.config.DefaultTTL)
	token, err := s.jwtProvider.GenerateToken(&authdomain.Claims{UserID: user.ID, Username: user.Username}, s.config.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "User logged in", attr.Int64("user_id", user.ID))
	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toView(user),
	}, nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (authdomain.Identity, error) {
	if token == "" {
		return authdomain.Identity{}, ErrUnauthenticated
	}
	claims, err := s.jwtProvider.ValidateToken(token)
	if err != nil {
		return authdomain.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return authdomain.Identity{ID: claims.UserID, Username: claims.Username}, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*UserView, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.CurrentUser")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	v := toView(user)
	return &v, nil
}

// SeedUsers creates SEAT001..SEATnnn with password S<n>. Existing seats are kept.
func (s *AuthService) SeedUsers(ctx context.Context, count int) (int, error) {
	users := make([]*userdb.User, 0, count)
	for i := 1; i <= count; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte(SeatPassword(i)), s.config.BcryptCost)
		if err != nil {
			return 0, fmt.Errorf("failed to hash password for seat %d: %w", i, err)
		}
		users = append(users, &userdb.User{
			Username:     SeatUsername(i),
			PasswordHash: string(hash),
		})
	}

	n, err := s.userRepo.SaveUsers(ctx, s.db, users)
	if err != nil {
		return 0, fmt.Errorf("failed to seed users: %w", err)
	}
	s.logger.InfoContext(ctx, "Users seeded", attr.Int("requested", count), attr.Int("inserted", n))
	return n, nil
}

func SeatUsername(i int) string { return fmt.Sprintf("SEAT%03d", i) }

func SeatPassword(i int) string { return fmt.Sprintf("S%d", i) }

func toView(u *userdb.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, TotalScore: u.TotalScore}
}
