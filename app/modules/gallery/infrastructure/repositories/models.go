package gallerydb

import (
	"time"

	"github.com/uptrace/bun"
)

// GeneratedImage is a free-play image. It never affects scores.
type GeneratedImage struct {
	bun.BaseModel `bun:"table:generated_images,alias:gi"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id,notnull" json:"user_id"`
	Username      string    `bun:"username,notnull" json:"user"`
	Prompt        string    `bun:"prompt,notnull" json:"prompt"`
	URL           string    `bun:"url,notnull" json:"url"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ImageVote is one user's upvote on an image.
type ImageVote struct {
	bun.BaseModel `bun:"table:image_votes,alias:iv"`
	ID            int64     `bun:"id,pk,autoincrement"`
	ImageID       int64     `bun:"image_id,notnull"`
	UserID        int64     `bun:"user_id,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// GalleryItem is an image with its vote total.
type GalleryItem struct {
	ID        int64     `bun:"id" json:"id"`
	Username  string    `bun:"username" json:"user"`
	Prompt    string    `bun:"prompt" json:"prompt"`
	URL       string    `bun:"url" json:"url"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
	VoteCount int       `bun:"vote_count" json:"vote_count"`
}

// VoteState is the vote total for an image and whether the caller is part of it.
type VoteState struct {
	Votes int  `json:"votes"`
	Voted bool `json:"voted"`
}
