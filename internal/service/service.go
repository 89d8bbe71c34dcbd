// Package service implements validation and orchestration between the HTTP
// handlers and the repositories: identity upserts, the event store, the
// join ledger and replies.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-feed/internal/model"
	"github.com/Shivanand-hulikatti/event-feed/internal/notify"
	"github.com/Shivanand-hulikatti/event-feed/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// UserStore persists declared identities.
type UserStore interface {
	Upsert(ctx context.Context, u model.User) error
}

// EventStore persists events and derives their feed view.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context, searchTerm, viewerHandle string) ([]model.EventSummary, error)
	GetByID(ctx context.Context, id int64, viewerHandle string) (*model.EventDetail, error)
}

// JoinStore is the membership ledger.
type JoinStore interface {
	Add(ctx context.Context, eventID int64, handle string) (bool, error)
	Remove(ctx context.Context, eventID int64, handle string) (int64, error)
}

// ReplyStore persists replies to events.
type ReplyStore interface {
	Create(ctx context.Context, req model.ReplyRequest) (int64, error)
	ListByEvent(ctx context.Context, eventID int64) ([]model.Reply, error)
}

// Stores groups the repositories an EventService needs.
type Stores struct {
	Users   UserStore
	Events  EventStore
	Joins   JoinStore
	Replies ReplyStore
}

// publishTimeout bounds how long a mutating request waits on a notification.
const publishTimeout = 500 * time.Millisecond

// EventService orchestrates the feed's business operations.
type EventService struct {
	users    UserStore
	events   EventStore
	joins    JoinStore
	replies  ReplyStore
	validate *validator.Validate
	notifier notify.Publisher
	timeout  time.Duration
	log      *zap.Logger
}

// NewEventService constructs an EventService. A nil publisher disables
// notifications.
func NewEventService(stores Stores, notifier notify.Publisher, log *zap.Logger) *EventService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &EventService{
		users:    stores.Users,
		events:   stores.Events,
		joins:    stores.Joins,
		replies:  stores.Replies,
		validate: newValidator(),
		notifier: notifier,
		timeout:  publishTimeout,
		log:      log,
	}
}

// UpsertIdentity records the viewer's handle and display name. It does
// nothing for a viewer missing either field.
func (s *EventService) UpsertIdentity(ctx context.Context, v model.Viewer) error {
	if v.Handle == "" || v.DisplayName == "" {
		return nil
	}
	req := model.IdentityRequest{Handle: v.Handle, DisplayName: v.DisplayName}
	if err := checkStruct(s.validate, req); err != nil {
		return err
	}
	return s.users.Upsert(ctx, model.User{Handle: req.Handle, DisplayName: req.DisplayName})
}

// CreateEvent validates the request and inserts the event. The creator is
// not joined automatically.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	if err := checkStruct(s.validate, req); err != nil {
		return nil, err
	}
	event, err := s.events.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.publish(ctx, notify.EventCreated, event)
	return event, nil
}

// ListEvents returns the feed: events whose name contains searchTerm,
// newest first, annotated for the viewer.
func (s *EventService) ListEvents(ctx context.Context, searchTerm string, v model.Viewer) ([]model.EventSummary, error) {
	events, err := s.events.List(ctx, searchTerm, v.Handle)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.EventSummary{}
	}
	return events, nil
}

// GetEvent returns one event with its replies, or repository.ErrNotFound.
func (s *EventService) GetEvent(ctx context.Context, id int64, v model.Viewer) (*model.EventDetail, error) {
	if id <= 0 {
		return nil, repository.ErrNotFound
	}
	event, err := s.events.GetByID(ctx, id, v.Handle)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	replies, err := s.replies.ListByEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	if replies == nil {
		replies = []model.Reply{}
	}
	event.Replies = replies
	return event, nil
}

// Join adds a membership row and reports whether one was written. Unless
// the ledger runs in unique mode, joining twice records two rows.
func (s *EventService) Join(ctx context.Context, req model.JoinRequest) (bool, error) {
	if err := checkStruct(s.validate, req); err != nil {
		return false, err
	}
	added, err := s.joins.Add(ctx, req.EventID, req.UserHandle)
	if err != nil {
		return false, fmt.Errorf("join event: %w", err)
	}
	if added {
		s.publish(ctx, notify.EventJoined, req)
	}
	return added, nil
}

// Leave removes every membership row for the event and handle, returning
// the number removed.
func (s *EventService) Leave(ctx context.Context, req model.JoinRequest) (int64, error) {
	if err := checkStruct(s.validate, req); err != nil {
		return 0, err
	}
	removed, err := s.joins.Remove(ctx, req.EventID, req.UserHandle)
	if err != nil {
		return 0, fmt.Errorf("leave event: %w", err)
	}
	if removed > 0 {
		s.publish(ctx, notify.EventLeft, req)
	}
	return removed, nil
}

// AddReply appends a reply to an event and returns its id.
func (s *EventService) AddReply(ctx context.Context, req model.ReplyRequest) (int64, error) {
	if err := checkStruct(s.validate, req); err != nil {
		return 0, err
	}
	id, err := s.replies.Create(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("add reply: %w", err)
	}
	s.publish(ctx, notify.ReplyAdded, map[string]any{
		"id":             id,
		"handle":         req.Handle,
		"replyToEventId": req.ReplyToEventID,
	})
	return id, nil
}

// publish is best effort; a failed or slow notification never fails the
// request. The write is already committed when it runs.
func (s *EventService) publish(ctx context.Context, kind string, payload any) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.notifier.Publish(ctx, kind, payload); err != nil {
		s.log.Warn("publish notification failed", zap.String("type", kind), zap.Error(err))
	}
}
