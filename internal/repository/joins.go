package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// JoinRepository is the membership ledger. Join counts are always derived
// from its rows, never stored.
type JoinRepository struct {
	db     *pgxpool.Pool
	unique bool
}

// NewJoinRepository constructs a JoinRepository. With unique set, Add skips
// the insert when the same (event, handle) row already exists; otherwise
// every Add writes a row, duplicates included.
func NewJoinRepository(db *pgxpool.Pool, unique bool) *JoinRepository {
	return &JoinRepository{db: db, unique: unique}
}

// Add records that handle joins eventID and reports whether a row was
// written. The event is not checked for existence.
func (r *JoinRepository) Add(ctx context.Context, eventID int64, handle string) (bool, error) {
	query := `INSERT INTO joins (event_id, user_handle) VALUES ($1, $2)`
	if r.unique {
		query = `INSERT INTO joins (event_id, user_handle)
		 SELECT $1::bigint, $2::varchar
		 WHERE NOT EXISTS (
		     SELECT 1 FROM joins WHERE event_id = $1 AND user_handle = $2
		 )`
	}
	tag, err := r.db.Exec(ctx, query, eventID, handle)
	if err != nil {
		return false, fmt.Errorf("insert join: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Remove deletes every join row for (eventID, handle), duplicates included,
// and returns how many were removed.
func (r *JoinRepository) Remove(ctx context.Context, eventID int64, handle string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM joins WHERE event_id = $1 AND user_handle = $2`,
		eventID, handle,
	)
	if err != nil {
		return 0, fmt.Errorf("delete joins: %w", err)
	}
	return tag.RowsAffected(), nil
}
