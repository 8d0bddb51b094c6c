package userdb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// User is a contest participant. TotalScore is the sum of the user's best
// score per challenge.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Username      string    `bun:"username,unique,notnull" json:"username"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	TotalScore    float64   `bun:"total_score,type:numeric(10,2),notnull,default:0" json:"total_score"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

var _ bun.BeforeInsertHook = (*User)(nil)

func (u *User) BeforeInsert(ctx context.Context, query *bun.InsertQuery) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return nil
}
