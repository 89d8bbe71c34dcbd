// Package model defines the core domain types for the event feed.
package model

import "time"

// User is a self-declared identity. Handle is the stable key; DisplayName
// always holds the most recent value seen for that handle.
type User struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"username"`
}

// Viewer is the identity a request is made on behalf of. Both fields may be
// empty for anonymous visits.
type Viewer struct {
	Handle      string
	DisplayName string
}

// Anonymous reports whether the viewer carries no handle.
func (v Viewer) Anonymous() bool {
	return v.Handle == ""
}

// Event is a row of the events table.
type Event struct {
	ID         int64     `json:"id"`
	UserHandle string    `json:"handle"`
	Eventname  string    `json:"eventname"`
	Starttime  string    `json:"starttime"`
	Endtime    string    `json:"endtime"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventSummary is one entry of the feed.
type EventSummary struct {
	ID        int64     `json:"id"`
	Eventname string    `json:"eventname"`
	Username  string    `json:"username"`
	Handle    string    `json:"handle"`
	Joins     int       `json:"joins"`
	Joined    bool      `json:"joined"`
	CreatedAt time.Time `json:"created_at"`
}

// EventDetail is a single event with its owner, join state and replies.
type EventDetail struct {
	ID        int64     `json:"id"`
	Eventname string    `json:"eventname"`
	Username  string    `json:"username"`
	Handle    string    `json:"handle"`
	Starttime string    `json:"starttime"`
	Endtime   string    `json:"endtime"`
	Joins     int       `json:"joins"`
	Joined    bool      `json:"joined"`
	CreatedAt time.Time `json:"created_at"`
	Replies   []Reply   `json:"replies"`
}

// Reply is a comment attached to an event, joined with its author.
type Reply struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Handle    string `json:"handle" validate:"required,max=50"`
	Eventname string `json:"eventname" validate:"required,max=50"`
	Starttime string `json:"starttime" validate:"required"`
	Endtime   string `json:"endtime" validate:"required"`
}

// CreateEventResponse carries the generated event id.
type CreateEventResponse struct {
	EventID int64 `json:"event_id"`
}

// JoinRequest is the payload for both joining and leaving an event.
type JoinRequest struct {
	EventID    int64  `json:"eventId" validate:"gt=0"`
	UserHandle string `json:"userHandle" validate:"required,max=50"`
}

// JoinResponse reports whether a join row was written.
type JoinResponse struct {
	Joined bool `json:"joined"`
}

// LeaveResponse reports how many join rows a leave removed.
type LeaveResponse struct {
	Removed int64 `json:"removed"`
}

// ReplyRequest is the payload for replying to an event.
type ReplyRequest struct {
	Handle         string `json:"handle" validate:"required,max=50"`
	Content        string `json:"content" validate:"required"`
	ReplyToEventID int64  `json:"replyToEventId" validate:"gt=0"`
}

// ReplyResponse carries the generated reply id.
type ReplyResponse struct {
	ID int64 `json:"id"`
}

// IdentityRequest is the identity pair a visitor declares.
type IdentityRequest struct {
	Handle      string `json:"handle" validate:"required,max=50"`
	DisplayName string `json:"username" validate:"required,max=50"`
}

// Feed is the payload of the feed page.
type Feed struct {
	Username   string         `json:"username,omitempty"`
	Handle     string         `json:"handle,omitempty"`
	SearchTerm string         `json:"searchTerm"`
	Events     []EventSummary `json:"events"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
