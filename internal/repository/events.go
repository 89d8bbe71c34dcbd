package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-feed/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event. The id and created_at are assigned by the
// database.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	e := &model.Event{
		UserHandle: req.Handle,
		Eventname:  req.Eventname,
		Starttime:  req.Starttime,
		Endtime:    req.Endtime,
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO events (user_handle, eventname, starttime, endtime)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		e.UserHandle, e.Eventname, e.Starttime, e.Endtime,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

// List returns every event whose name contains searchTerm, newest first,
// with its owner, join count and whether viewerHandle has joined it.
// Events without an owner row are left out.
func (r *EventRepository) List(ctx context.Context, searchTerm, viewerHandle string) ([]model.EventSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.eventname, u.display_name, u.handle,
		        COALESCE(jc.joins, 0), vj.event_id IS NOT NULL, e.created_at
		 FROM events e
		 JOIN users u ON u.handle = e.user_handle
		 LEFT JOIN (
		     SELECT event_id, COUNT(*) AS joins FROM joins GROUP BY event_id
		 ) jc ON jc.event_id = e.id
		 LEFT JOIN (
		     SELECT DISTINCT event_id FROM joins WHERE user_handle = $2
		 ) vj ON vj.event_id = e.id
		 WHERE e.eventname LIKE $1 ESCAPE '\'
		 ORDER BY e.created_at DESC, e.id DESC`,
		ContainsPattern(searchTerm), viewerHandle,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		var e model.EventSummary
		if err := rows.Scan(&e.ID, &e.Eventname, &e.Username, &e.Handle, &e.Joins, &e.Joined, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns one event with its owner and join state, or ErrNotFound
// when either the event or its owner row is missing. Replies are not loaded.
func (r *EventRepository) GetByID(ctx context.Context, id int64, viewerHandle string) (*model.EventDetail, error) {
	var e model.EventDetail
	err := r.db.QueryRow(ctx,
		`SELECT e.id, e.eventname, u.display_name, u.handle, e.starttime, e.endtime, e.created_at,
		        (SELECT COUNT(*) FROM joins j WHERE j.event_id = e.id),
		        EXISTS (SELECT 1 FROM joins j WHERE j.event_id = e.id AND j.user_handle = $2)
		 FROM events e
		 JOIN users u ON u.handle = e.user_handle
		 WHERE e.id = $1`,
		id, viewerHandle,
	).Scan(&e.ID, &e.Eventname, &e.Username, &e.Handle, &e.Starttime, &e.Endtime, &e.CreatedAt, &e.Joins, &e.Joined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}
