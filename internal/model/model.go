// Package model defines the core domain types for the event moderation and
// participation system.
package model

import "time"

// DateTimeLayout is the wire format for every timestamp the API accepts or
// returns, shared with the stats service.
const DateTimeLayout = "2006-01-02 15:04:05"

// State is the moderation lifecycle state of an event.
type State string

const (
	StatePending   State = "PENDING"
	StatePublished State = "PUBLISHED"
	StateCanceled  State = "CANCELED"
	StateRevision  State = "REVISION"
)

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StatePending, StatePublished, StateCanceled, StateRevision:
		return true
	}
	return false
}

// StateAction is a lifecycle command carried by an event update.
type StateAction string

const (
	ActionSendToReview   StateAction = "SEND_TO_REVIEW"
	ActionCancelReview   StateAction = "CANCEL_REVIEW"
	ActionPublishEvent   StateAction = "PUBLISH_EVENT"
	ActionRejectEvent    StateAction = "REJECT_EVENT"
	ActionSendToRevision StateAction = "SEND_TO_REVISION"
)

// RequestStatus is the status of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// EventSort selects the ranking path of a listing.
type EventSort string

const (
	SortEventDate EventSort = "EVENT_DATE"
	SortViews     EventSort = "VIEWS"
)

// Location is a point on the map an event takes place at.
type Location struct {
	ID  int64   `json:"-"`
	Lat float32 `json:"lat"`
	Lon float32 `json:"lon"`
}

// Event represents an activity published by its initiator.
type Event struct {
	ID                int64
	Title             string
	Annotation        string
	Description       string
	CategoryID        int64
	InitiatorID       int64
	Location          Location
	EventDate         time.Time
	CreatedOn         time.Time
	PublishedOn       *time.Time
	ParticipantLimit  int
	ConfirmedRequests int
	RequestModeration bool
	Paid              bool
	State             State

	// Views is filled per request from the stats service and never stored.
	Views int64
}

// Unlimited reports whether the event accepts any number of participants.
func (e *Event) Unlimited() bool {
	return e.ParticipantLimit == 0
}

// NeedsModeration reports whether participation requests wait for the
// initiator's decision instead of being confirmed on arrival.
func (e *Event) NeedsModeration() bool {
	return !e.Unlimited() && e.RequestModeration
}

// Remaining returns the number of free places, or -1 when unlimited.
func (e *Event) Remaining() int {
	if e.Unlimited() {
		return -1
	}
	return e.ParticipantLimit - e.ConfirmedRequests
}

// IsFull returns true when a limited event has no places left.
func (e *Event) IsFull() bool {
	return !e.Unlimited() && e.ConfirmedRequests >= e.ParticipantLimit
}

// ParticipationRequest is a user's ask to attend an event.
type ParticipationRequest struct {
	ID          int64
	EventID     int64
	RequesterID int64
	Status      RequestStatus
	Created     time.Time
}

// AdminComment is an append-only moderation note attached to an event.
type AdminComment struct {
	ID      int64
	EventID int64
	Text    string
	Created time.Time
}

// EventUpdate carries the optional field deltas shared by owner and admin
// updates. Nil fields are left untouched.
type EventUpdate struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *int64
	Location          *Location
	EventDate         *time.Time
	ParticipantLimit  *int
	RequestModeration *bool
	Paid              *bool
	StateAction       *StateAction
}

// AdminEventUpdate is an EventUpdate plus an optional moderation comment.
type AdminEventUpdate struct {
	EventUpdate
	Comment *string
}

// NewEvent is the input for creating an event.
type NewEvent struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        int64
	Location          Location
	EventDate         time.Time
	ParticipantLimit  int
	RequestModeration *bool
	Paid              bool
}

// StatusUpdateResult is the outcome of a batch status change.
type StatusUpdateResult struct {
	Confirmed []ParticipationRequest
	Rejected  []ParticipationRequest
}
