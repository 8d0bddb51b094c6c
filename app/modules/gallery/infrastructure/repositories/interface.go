package gallerydb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository stores free-play images and their votes.
//
// Error semantics:
//   - ErrImageNotFound when a vote references a missing image.
//   - Wrapped driver errors otherwise.
type Repository interface {
	SaveImage(ctx context.Context, db bun.IDB, img *GeneratedImage) error
	// ListImages returns newest first.
	ListImages(ctx context.Context, db bun.IDB, offset, limit int) ([]GalleryItem, error)
	// ToggleVote adds the user's vote, or removes it if present.
	ToggleVote(ctx context.Context, db bun.IDB, imageID, userID int64) (VoteState, error)
	// GetVoteState reports the total; userID 0 is anonymous and never voted.
	GetVoteState(ctx context.Context, db bun.IDB, imageID, userID int64) (VoteState, error)
}
