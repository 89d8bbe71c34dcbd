// Package sqlite implements the event feed repositories on an embedded
// SQLite database. Queries mirror the PostgreSQL ones in the parent package;
// timestamps are stored as unix nanoseconds and assigned at insert.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-feed/internal/model"
	"github.com/Shivanand-hulikatti/event-feed/internal/repository"
)

func now() int64 {
	return time.Now().UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// UserRepository handles persistence for declared identities.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts the user or replaces the display name of an existing handle.
func (r *UserRepository) Upsert(ctx context.Context, u model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (handle, display_name)
		 VALUES (?, ?)
		 ON CONFLICT (handle) DO UPDATE SET display_name = excluded.display_name`,
		u.Handle, u.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event stamped with the current time.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	created := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (user_handle, eventname, starttime, endtime, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		req.Handle, req.Eventname, req.Starttime, req.Endtime, created,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("event id: %w", err)
	}
	return &model.Event{
		ID:         id,
		UserHandle: req.Handle,
		Eventname:  req.Eventname,
		Starttime:  req.Starttime,
		Endtime:    req.Endtime,
		CreatedAt:  fromNanos(created),
	}, nil
}

// List returns every event whose name contains searchTerm, newest first.
// SQLite's LIKE is case-insensitive for ASCII.
func (r *EventRepository) List(ctx context.Context, searchTerm, viewerHandle string) ([]model.EventSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.eventname, u.display_name, u.handle,
		        COALESCE(jc.joins, 0), vj.event_id IS NOT NULL, e.created_at
		 FROM events e
		 JOIN users u ON u.handle = e.user_handle
		 LEFT JOIN (
		     SELECT event_id, COUNT(*) AS joins FROM joins GROUP BY event_id
		 ) jc ON jc.event_id = e.id
		 LEFT JOIN (
		     SELECT DISTINCT event_id FROM joins WHERE user_handle = ?
		 ) vj ON vj.event_id = e.id
		 WHERE e.eventname LIKE ? ESCAPE '\'
		 ORDER BY e.created_at DESC, e.id DESC`,
		viewerHandle, repository.ContainsPattern(searchTerm),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		var (
			e       model.EventSummary
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Eventname, &e.Username, &e.Handle, &e.Joins, &e.Joined, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.CreatedAt = fromNanos(created)
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns one event with its owner and join state, or
// repository.ErrNotFound when the event or its owner row is missing.
func (r *EventRepository) GetByID(ctx context.Context, id int64, viewerHandle string) (*model.EventDetail, error) {
	var (
		e       model.EventDetail
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT e.id, e.eventname, u.display_name, u.handle, e.starttime, e.endtime, e.created_at,
		        (SELECT COUNT(*) FROM joins j WHERE j.event_id = e.id),
		        EXISTS (SELECT 1 FROM joins j WHERE j.event_id = e.id AND j.user_handle = ?)
		 FROM events e
		 JOIN users u ON u.handle = e.user_handle
		 WHERE e.id = ?`,
		viewerHandle, id,
	).Scan(&e.ID, &e.Eventname, &e.Username, &e.Handle, &e.Starttime, &e.Endtime, &created, &e.Joins, &e.Joined)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	e.CreatedAt = fromNanos(created)
	return &e, nil
}

// JoinRepository is the membership ledger.
type JoinRepository struct {
	db     *sql.DB
	unique bool
}

// NewJoinRepository constructs a JoinRepository; see the PostgreSQL
// counterpart for the meaning of unique.
func NewJoinRepository(db *sql.DB, unique bool) *JoinRepository {
	return &JoinRepository{db: db, unique: unique}
}

// Add records that handle joins eventID and reports whether a row was written.
func (r *JoinRepository) Add(ctx context.Context, eventID int64, handle string) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if r.unique {
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO joins (event_id, user_handle)
			 SELECT ?, ?
			 WHERE NOT EXISTS (
			     SELECT 1 FROM joins WHERE event_id = ? AND user_handle = ?
			 )`,
			eventID, handle, eventID, handle,
		)
	} else {
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO joins (event_id, user_handle) VALUES (?, ?)`,
			eventID, handle,
		)
	}
	if err != nil {
		return false, fmt.Errorf("insert join: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert join: %w", err)
	}
	return n > 0, nil
}

// Remove deletes every join row for (eventID, handle) and returns how many
// were removed.
func (r *JoinRepository) Remove(ctx context.Context, eventID int64, handle string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM joins WHERE event_id = ? AND user_handle = ?`,
		eventID, handle,
	)
	if err != nil {
		return 0, fmt.Errorf("delete joins: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete joins: %w", err)
	}
	return n, nil
}

// ReplyRepository handles persistence for event replies.
type ReplyRepository struct {
	db *sql.DB
}

// NewReplyRepository constructs a ReplyRepository.
func NewReplyRepository(db *sql.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

// Create inserts a reply stamped with the current time and returns its id.
func (r *ReplyRepository) Create(ctx context.Context, req model.ReplyRequest) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO replies (content, user_handle, reply_to_event_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		req.Content, req.Handle, req.ReplyToEventID, now(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert reply: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reply id: %w", err)
	}
	return id, nil
}

// ListByEvent returns the replies to an event, oldest first.
func (r *ReplyRepository) ListByEvent(ctx context.Context, eventID int64) ([]model.Reply, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.content, u.display_name, u.handle, t.created_at
		 FROM replies t
		 JOIN users u ON u.handle = t.user_handle
		 WHERE t.reply_to_event_id = ?
		 ORDER BY t.created_at ASC, t.id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	var replies []model.Reply
	for rows.Next() {
		var (
			reply   model.Reply
			created int64
		)
		if err := rows.Scan(&reply.ID, &reply.Content, &reply.Username, &reply.Handle, &created); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		reply.CreatedAt = fromNanos(created)
		replies = append(replies, reply)
	}
	return replies, rows.Err()
}
