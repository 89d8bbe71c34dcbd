package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-feed/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles persistence for declared identities.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts the user or, when the handle exists, replaces its display
// name.
func (r *UserRepository) Upsert(ctx context.Context, u model.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (handle, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (handle) DO UPDATE SET display_name = excluded.display_name`,
		u.Handle, u.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
