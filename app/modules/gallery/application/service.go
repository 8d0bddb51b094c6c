package galleryservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	gallerydb "github.com/Black-And-White-Club/promptduel/app/modules/gallery/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/generation"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

var (
	ErrInvalidPrompt    = errors.New("prompt must be non-empty and within the length limit")
	ErrGenerationFailed = errors.New("image generation failed")
	ErrImageNotFound    = gallerydb.ErrImageNotFound
)

// Service is free-play generation plus voting. Nothing here touches scores.
type Service interface {
	Generate(ctx context.Context, user User, prompt string) (*gallerydb.GeneratedImage, error)
	List(ctx context.Context, offset, limit int) ([]gallerydb.GalleryItem, error)
	ToggleVote(ctx context.Context, imageID, userID int64) (gallerydb.VoteState, error)
	GetVoteState(ctx context.Context, imageID, userID int64) (gallerydb.VoteState, error)
}

type User struct {
	ID       int64
	Username string
}

type GalleryService struct {
	repo            gallerydb.Repository
	generator       generation.Client
	maxPromptLength int
	logger          *slog.Logger
	tracer          trace.Tracer
	db              *bun.DB
}

func NewGalleryService(repo gallerydb.Repository, generator generation.Client, maxPromptLength int, logger *slog.Logger, tracer trace.Tracer, db *bun.DB) *GalleryService {
	if maxPromptLength <= 0 {
		maxPromptLength = 1000
	}
	return &GalleryService{
		repo:            repo,
		generator:       generator,
		maxPromptLength: maxPromptLength,
		logger:          logger,
		tracer:          tracer,
		db:              db,
	}
}

var _ Service = (*GalleryService)(nil)

func (s *GalleryService) idb() bun.IDB {
	if s.db == nil {
		return nil
	}
	return s.db
}

// ClampPage normalizes gallery paging parameters.
func ClampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return offset, limit
}

func (s *GalleryService) Generate(ctx context.Context, user User, prompt string) (*gallerydb.GeneratedImage, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryService.Generate")
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" || len([]rune(prompt)) > s.maxPromptLength {
		return nil, ErrInvalidPrompt
	}

	url, err := s.generator.Generate(ctx, prompt, generation.Params{})
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Free-play generation failed",
			attr.Int64("user_id", user.ID),
			attr.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	img := &gallerydb.GeneratedImage{
		UserID:   user.ID,
		Username: user.Username,
		Prompt:   prompt,
		URL:      url,
	}
	// The provider call already succeeded; keep the row even if the caller left.
	if err := s.repo.SaveImage(context.WithoutCancel(ctx), s.idb(), img); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("Generate: %w", err)
	}

	s.logger.InfoContext(ctx, "Gallery image generated",
		attr.Int64("user_id", user.ID),
		attr.Int64("image_id", img.ID),
	)
	return img, nil
}

func (s *GalleryService) List(ctx context.Context, offset, limit int) ([]gallerydb.GalleryItem, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryService.List")
	defer span.End()

	offset, limit = ClampPage(offset, limit)
	items, err := s.repo.ListImages(ctx, s.idb(), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return items, nil
}

func (s *GalleryService) ToggleVote(ctx context.Context, imageID, userID int64) (gallerydb.VoteState, error) {
	ctx, span := s.tracer.Start(ctx, "GalleryService.ToggleVote")
	defer span.End()

	if imageID <= 0 {
		return gallerydb.VoteState{}, ErrImageNotFound
	}
	state, err := s.repo.ToggleVote(ctx, s.idb(), imageID, userID)
	if err != nil {
		if errors.Is(err, gallerydb.ErrImageNotFound) {
			return gallerydb.VoteState{}, err
		}
		return gallerydb.VoteState{}, fmt.Errorf("ToggleVote: %w", err)
	}
	return state, nil
}

func (s *GalleryService) GetVoteState(ctx context.Context, imageID, userID int64) (gallerydb.VoteState, error) {
	state, err := s.repo.GetVoteState(ctx, s.idb(), imageID, userID)
	if err != nil {
		return gallerydb.VoteState{}, fmt.Errorf("GetVoteState: %w", err)
	}
	return state, nil
}
