package challengeservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// ErrChallengeNotFound is returned when the requested challenge does not exist.
var ErrChallengeNotFound = errors.New("challenge not found")

// Service exposes read access to challenges and seeding.
type Service interface {
	ListChallenges(ctx context.Context) ([]challengedb.Challenge, error)
	GetChallenge(ctx context.Context, id int64) (*challengedb.Challenge, error)
	SeedChallenges(ctx context.Context) (int, error)
}

// ChallengeService implements the Service interface.
type ChallengeService struct {
	repo   challengedb.Repository
	db     bun.IDB
	logger *slog.Logger
	tracer trace.Tracer
}

func NewChallengeService(repo challengedb.Repository, db bun.IDB, logger *slog.Logger, tracer trace.Tracer) *ChallengeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChallengeService{repo: repo, db: db, logger: logger, tracer: tracer}
}

var _ Service = (*ChallengeService)(nil)

func (s *ChallengeService) start(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *ChallengeService) ListChallenges(ctx context.Context) ([]challengedb.Challenge, error) {
	ctx, span := s.start(ctx, "ChallengeService.ListChallenges")
	defer span.End()

	challenges, err := s.repo.List(ctx, s.db)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ListChallenges: %w", err)
	}
	return challenges, nil
}

// GetChallenge maps a missing row to ErrChallengeNotFound.
func (s *ChallengeService) GetChallenge(ctx context.Context, id int64) (*challengedb.Challenge, error) {
	ctx, span := s.start(ctx, "ChallengeService.GetChallenge")
	defer span.End()

	c, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, challengedb.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("GetChallenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeService) SeedChallenges(ctx context.Context) (int, error) {
	n, err := s.repo.SeedDefaults(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("SeedChallenges: %w", err)
	}
	s.logger.InfoContext(ctx, "Challenges seeded", attr.Int("inserted", n))
	return n, nil
}
