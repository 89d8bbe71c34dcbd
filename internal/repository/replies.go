package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-feed/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReplyRepository handles persistence for event replies.
type ReplyRepository struct {
	db *pgxpool.Pool
}

// NewReplyRepository constructs a ReplyRepository.
func NewReplyRepository(db *pgxpool.Pool) *ReplyRepository {
	return &ReplyRepository{db: db}
}

// Create inserts a reply to an event and returns its id.
func (r *ReplyRepository) Create(ctx context.Context, req model.ReplyRequest) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO replies (content, user_handle, reply_to_event_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		req.Content, req.Handle, req.ReplyToEventID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reply: %w", err)
	}
	return id, nil
}

// ListByEvent returns the replies to an event, oldest first. Replies whose
// author has no identity row are skipped.
func (r *ReplyRepository) ListByEvent(ctx context.Context, eventID int64) ([]model.Reply, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.content, u.display_name, u.handle, t.created_at
		 FROM replies t
		 JOIN users u ON u.handle = t.user_handle
		 WHERE t.reply_to_event_id = $1
		 ORDER BY t.created_at ASC, t.id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	var replies []model.Reply
	for rows.Next() {
		var reply model.Reply
		if err := rows.Scan(&reply.ID, &reply.Content, &reply.Username, &reply.Handle, &reply.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		replies = append(replies, reply)
	}
	return replies, rows.Err()
}
