package gallerydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) SaveImage(ctx context.Context, db bun.IDB, img *GeneratedImage) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(img).Returning("id, created_at").Exec(ctx); err != nil {
		return fmt.Errorf("gallerydb.SaveImage: %w", err)
	}
	return nil
}

func (r *Impl) ListImages(ctx context.Context, db bun.IDB, offset, limit int) ([]GalleryItem, error) {
	db = r.resolveDB(db)
	items := []GalleryItem{}
	err := db.NewSelect().
		TableExpr("generated_images AS gi").
		ColumnExpr("gi.id, gi.username, gi.prompt, gi.url, gi.created_at").
		ColumnExpr("COUNT(iv.id) AS vote_count").
		Join("LEFT JOIN image_votes AS iv ON iv.image_id = gi.id").
		GroupExpr("gi.id").
		OrderExpr("gi.created_at DESC, gi.id DESC").
		Offset(offset).
		Limit(limit).
		Scan(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("gallerydb.ListImages: %w", err)
	}
	return items, nil
}

func (r *Impl) ToggleVote(ctx context.Context, db bun.IDB, imageID, userID int64) (VoteState, error) {
	db = r.resolveDB(db)
	if tx, ok := db.(bun.Tx); ok {
		return toggleVote(ctx, tx, imageID, userID)
	}
	var state VoteState
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		state, err = toggleVote(ctx, tx, imageID, userID)
		return err
	})
	return state, err
}

func toggleVote(ctx context.Context, tx bun.Tx, imageID, userID int64) (VoteState, error) {
	// Row lock on the image serializes toggles for it.
	var id int64
	err := tx.NewSelect().
		Model((*GeneratedImage)(nil)).
		Column("id").
		Where("id = ?", imageID).
		For("UPDATE").
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return VoteState{}, ErrImageNotFound
	}
	if err != nil {
		return VoteState{}, fmt.Errorf("gallerydb.ToggleVote: lock image: %w", err)
	}

	res, err := tx.NewDelete().
		Model((*ImageVote)(nil)).
		Where("image_id = ?", imageID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return VoteState{}, fmt.Errorf("gallerydb.ToggleVote: delete: %w", err)
	}
	removed, _ := res.RowsAffected()

	state := VoteState{Voted: removed == 0}
	if state.Voted {
		vote := &ImageVote{ImageID: imageID, UserID: userID}
		if _, err := tx.NewInsert().Model(vote).On("CONFLICT (image_id, user_id) DO NOTHING").Exec(ctx); err != nil {
			return VoteState{}, fmt.Errorf("gallerydb.ToggleVote: insert: %w", err)
		}
	}

	state.Votes, err = tx.NewSelect().Model((*ImageVote)(nil)).Where("image_id = ?", imageID).Count(ctx)
	if err != nil {
		return VoteState{}, fmt.Errorf("gallerydb.ToggleVote: count: %w", err)
	}
	return state, nil
}

func (r *Impl) GetVoteState(ctx context.Context, db bun.IDB, imageID, userID int64) (VoteState, error) {
	db = r.resolveDB(db)
	var state VoteState
	err := db.NewSelect().
		ColumnExpr("COUNT(*) AS votes").
		ColumnExpr("COALESCE(BOOL_OR(iv.user_id = ?), FALSE) AS voted", userID).
		TableExpr("image_votes AS iv").
		Where("iv.image_id = ?", imageID).
		Scan(ctx, &state.Votes, &state.Voted)
	if err != nil {
		return VoteState{}, fmt.Errorf("gallerydb.GetVoteState: %w", err)
	}
	return state, nil
}
