package handler

import (
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// RequestHandler serves participation request endpoints.
type RequestHandler struct {
	admissions Admissions
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(admissions Admissions) *RequestHandler {
	return &RequestHandler{admissions: admissions}
}

// CreateRequest handles POST /users/{userId}/requests?eventId=
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("eventId")
	eventID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || eventID <= 0 {
		badRequest(w, r, "eventId must be a positive integer, got "+strconv.Quote(raw))
		return
	}

	pr, err := h.admissions.Create(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(pr))
}

// ListMyRequests handles GET /users/{userId}/requests
func (h *RequestHandler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	prs, err := h.admissions.ListForRequester(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(prs))
}

// CancelRequest handles PATCH /users/{userId}/requests/{requestId}/cancel
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pr, err := h.admissions.Cancel(r.Context(), userID, requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(pr))
}

// ListEventRequests handles GET /users/{userId}/events/{eventId}/requests
func (h *RequestHandler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	prs, err := h.admissions.ListForEvent(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(prs))
}

// ChangeStatuses handles PATCH /users/{userId}/events/{eventId}/requests
// Confirms or rejects a batch of pending requests in one transaction.
func (h *RequestHandler) ChangeStatuses(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req statusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if req.Status != model.RequestConfirmed && req.Status != model.RequestRejected {
		badRequest(w, r, "status must be CONFIRMED or REJECTED")
		return
	}

	res, err := h.admissions.ChangeStatuses(r.Context(), userID, eventID, req.RequestIDs, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusUpdateResponse{
		ConfirmedRequests: toRequestResponses(res.Confirmed),
		RejectedRequests:  toRequestResponses(res.Rejected),
	})
}
