package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// EventHandler serves the event endpoints of the public, private and admin
// surfaces.
type EventHandler struct {
	events EventManager
	search Searcher
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events EventManager, search Searcher) *EventHandler {
	return &EventHandler{events: events, search: search}
}

// ─── Public ───────────────────────────────────────────────────────────────────

// ListPublished handles GET /events
func (h *EventHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	p := q.searchParams()
	if q.err != nil {
		writeServiceError(w, r, q.err)
		return
	}

	events, err := h.search.PublicList(r.Context(), p, visitOf(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// GetPublished handles GET /events/{id}
func (h *EventHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ev, err := h.search.GetPublished(r.Context(), id, visitOf(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

// ─── Private ──────────────────────────────────────────────────────────────────

// CreateEvent handles POST /users/{userId}/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req newEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	in, err := req.toModel()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ev, err := h.events.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(ev))
}

// ListMyEvents handles GET /users/{userId}/events
func (h *EventHandler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := newQuery(r)
	from, size := q.integer("from", 0), q.integer("size", 10)
	if q.err != nil {
		writeServiceError(w, r, q.err)
		return
	}

	events, err := h.events.ListByOwner(r.Context(), userID, from, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// GetMyEvent handles GET /users/{userId}/events/{eventId}
func (h *EventHandler) GetMyEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ev, err := h.events.GetByOwner(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

// UpdateMyEvent handles PATCH /users/{userId}/events/{eventId}
func (h *EventHandler) UpdateMyEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	upd, err := req.toModel()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ev, err := h.events.UpdateByOwner(r.Context(), userID, eventID, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

// ─── Admin ────────────────────────────────────────────────────────────────────

// AdminListEvents handles GET /admin/events
func (h *EventHandler) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	p := q.searchParams()
	p.Initiators = q.ints("users")
	for _, s := range q.list("states") {
		p.States = append(p.States, model.State(s))
	}
	if q.err != nil {
		writeServiceError(w, r, q.err)
		return
	}

	events, err := h.search.AdminList(r.Context(), p, visitOf(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// AdminUpdateEvent handles PATCH /admin/events/{eventId}
func (h *EventHandler) AdminUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req adminUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	upd, err := req.toModel()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ev, comments, err := h.events.UpdateByAdmin(r.Context(), eventID, model.AdminEventUpdate{
		EventUpdate: upd,
		Comment:     req.AdminComment,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventWithComments(ev, comments))
}

func userAndEvent(r *http.Request) (int64, int64, error) {
	userID, err := pathID(r, "userId")
	if err != nil {
		return 0, 0, err
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		return 0, 0, err
	}
	return userID, eventID, nil
}
