// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Shivanand-hulikatti/event-feed/internal/model"
	"github.com/Shivanand-hulikatti/event-feed/internal/repository"
	"github.com/Shivanand-hulikatti/event-feed/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// EventHandler holds all HTTP handlers for the event feed.
type EventHandler struct {
	svc *service.EventService
	log *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// fail maps a service error to a status. Storage errors are logged and
// answered without detail.
func (h *EventHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func viewerFrom(r *http.Request) model.Viewer {
	q := r.URL.Query()
	return model.Viewer{Handle: q.Get("handle"), DisplayName: q.Get("username")}
}

// ─── API handlers ─────────────────────────────────────────────────────────────

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateEventResponse{EventID: event.ID})
}

// ListEvents handles GET /api/events?searchTerm=&handle=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), r.URL.Query().Get("searchTerm"), viewerFrom(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}?handle=
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id, viewerFrom(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Join handles POST /api/joins
func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req model.JoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	joined, err := h.svc.Join(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.JoinResponse{Joined: joined})
}

// Leave handles DELETE /api/joins
// Every join row for the event and handle is removed.
func (h *EventHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req model.JoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	removed, err := h.svc.Leave(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.LeaveResponse{Removed: removed})
}

// AddReply handles POST /api/replies
func (h *EventHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	var req model.ReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	id, err := h.svc.AddReply(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.ReplyResponse{ID: id})
}

// ─── Page surfaces ────────────────────────────────────────────────────────────

// Feed handles GET /?username=&handle=&searchTerm=
// A visitor declaring both username and handle is upserted before the feed
// is read, so the feed already shows the new display name. An identity that
// fails validation is logged and not stored; the feed is still served.
func (h *EventHandler) Feed(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r)
	if err := h.svc.UpsertIdentity(r.Context(), viewer); err != nil {
		var verr *service.ValidationError
		if !errors.As(err, &verr) {
			h.fail(w, r, err)
			return
		}
		h.log.Warn("identity rejected",
			zap.String("field", verr.Field),
			zap.String("reason", verr.Reason),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())))
	}

	searchTerm := r.URL.Query().Get("searchTerm")
	events, err := h.svc.ListEvents(r.Context(), searchTerm, viewer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Feed{
		Username:   viewer.DisplayName,
		Handle:     viewer.Handle,
		SearchTerm: searchTerm,
		Events:     events,
	})
}

// EventPage handles GET /event/{event_id}?username=&handle=
// An unparsable or unknown id redirects to the feed, keeping the viewer's
// identity parameters.
func (h *EventHandler) EventPage(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "event_id"), 10, 64)
	if err != nil {
		redirectToFeed(w, r, viewer)
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id, viewer)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			redirectToFeed(w, r, viewer)
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func redirectToFeed(w http.ResponseWriter, r *http.Request, v model.Viewer) {
	params := url.Values{}
	if v.DisplayName != "" {
		params.Set("username", v.DisplayName)
	}
	if v.Handle != "" {
		params.Set("handle", v.Handle)
	}
	target := "/"
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
