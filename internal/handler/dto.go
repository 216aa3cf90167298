package handler

import (
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(model.DateTimeLayout, s, time.UTC)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(model.DateTimeLayout)
}

// ─── Requests ─────────────────────────────────────────────────────────────────

type locationDTO struct {
	Lat float32 `json:"lat"`
	Lon float32 `json:"lon"`
}

type newEventRequest struct {
	Title             string      `json:"title"`
	Annotation        string      `json:"annotation"`
	Description       string      `json:"description"`
	Category          int64       `json:"category"`
	Location          locationDTO `json:"location"`
	EventDate         string      `json:"eventDate"`
	ParticipantLimit  int         `json:"participantLimit"`
	RequestModeration *bool       `json:"requestModeration"`
	Paid              bool        `json:"paid"`
}

func (r newEventRequest) toModel() (model.NewEvent, error) {
	date, err := parseTime(r.EventDate)
	if err != nil {
		return model.NewEvent{}, model.Errorf(model.KindValidation, "eventDate must use layout %q", model.DateTimeLayout)
	}
	return model.NewEvent{
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		CategoryID:        r.Category,
		Location:          model.Location{Lat: r.Location.Lat, Lon: r.Location.Lon},
		EventDate:         date,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
		Paid:              r.Paid,
	}, nil
}

type updateEventRequest struct {
	Title             *string            `json:"title"`
	Annotation        *string            `json:"annotation"`
	Description       *string            `json:"description"`
	Category          *int64             `json:"category"`
	Location          *locationDTO       `json:"location"`
	EventDate         *string            `json:"eventDate"`
	ParticipantLimit  *int               `json:"participantLimit"`
	RequestModeration *bool              `json:"requestModeration"`
	Paid              *bool              `json:"paid"`
	StateAction       *model.StateAction `json:"stateAction"`
}

func (r updateEventRequest) toModel() (model.EventUpdate, error) {
	u := model.EventUpdate{
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		CategoryID:        r.Category,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
		Paid:              r.Paid,
		StateAction:       r.StateAction,
	}
	if r.Location != nil {
		u.Location = &model.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
	}
	if r.EventDate != nil {
		date, err := parseTime(*r.EventDate)
		if err != nil {
			return model.EventUpdate{}, model.Errorf(model.KindValidation, "eventDate must use layout %q", model.DateTimeLayout)
		}
		u.EventDate = &date
	}
	return u, nil
}

type adminUpdateRequest struct {
	updateEventRequest
	AdminComment *string `json:"adminComment"`
}

type statusUpdateRequest struct {
	RequestIDs []int64             `json:"requestIds"`
	Status     model.RequestStatus `json:"status"`
}

// ─── Responses ────────────────────────────────────────────────────────────────

type eventResponse struct {
	ID                int64       `json:"id"`
	Title             string      `json:"title"`
	Annotation        string      `json:"annotation"`
	Description       string      `json:"description"`
	Category          int64       `json:"category"`
	Initiator         int64       `json:"initiator"`
	Location          locationDTO `json:"location"`
	EventDate         string      `json:"eventDate"`
	CreatedOn         string      `json:"createdOn"`
	PublishedOn       *string     `json:"publishedOn,omitempty"`
	ParticipantLimit  int         `json:"participantLimit"`
	ConfirmedRequests int         `json:"confirmedRequests"`
	RequestModeration bool        `json:"requestModeration"`
	Paid              bool        `json:"paid"`
	State             model.State `json:"state"`
	Views             int64       `json:"views"`
}

func toEventResponse(ev *model.Event) eventResponse {
	resp := eventResponse{
		ID:                ev.ID,
		Title:             ev.Title,
		Annotation:        ev.Annotation,
		Description:       ev.Description,
		Category:          ev.CategoryID,
		Initiator:         ev.InitiatorID,
		Location:          locationDTO{Lat: ev.Location.Lat, Lon: ev.Location.Lon},
		EventDate:         formatTime(ev.EventDate),
		CreatedOn:         formatTime(ev.CreatedOn),
		ParticipantLimit:  ev.ParticipantLimit,
		ConfirmedRequests: ev.ConfirmedRequests,
		RequestModeration: ev.RequestModeration,
		Paid:              ev.Paid,
		State:             ev.State,
		Views:             ev.Views,
	}
	if ev.PublishedOn != nil {
		s := formatTime(*ev.PublishedOn)
		resp.PublishedOn = &s
	}
	return resp
}

func toEventResponses(events []model.Event) []eventResponse {
	out := make([]eventResponse, len(events))
	for i := range events {
		out[i] = toEventResponse(&events[i])
	}
	return out
}

type commentResponse struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Created string `json:"created"`
}

type eventWithCommentsResponse struct {
	eventResponse
	AdminComments []commentResponse `json:"adminComments"`
}

func toEventWithComments(ev *model.Event, comments []model.AdminComment) eventWithCommentsResponse {
	out := eventWithCommentsResponse{
		eventResponse: toEventResponse(ev),
		AdminComments: make([]commentResponse, len(comments)),
	}
	for i, c := range comments {
		out.AdminComments[i] = commentResponse{ID: c.ID, Text: c.Text, Created: formatTime(c.Created)}
	}
	return out
}

type requestResponse struct {
	ID        int64               `json:"id"`
	Event     int64               `json:"event"`
	Requester int64               `json:"requester"`
	Status    model.RequestStatus `json:"status"`
	Created   string              `json:"created"`
}

func toRequestResponse(pr *model.ParticipationRequest) requestResponse {
	return requestResponse{
		ID:        pr.ID,
		Event:     pr.EventID,
		Requester: pr.RequesterID,
		Status:    pr.Status,
		Created:   formatTime(pr.Created),
	}
}

func toRequestResponses(prs []model.ParticipationRequest) []requestResponse {
	out := make([]requestResponse, len(prs))
	for i := range prs {
		out[i] = toRequestResponse(&prs[i])
	}
	return out
}

type statusUpdateResponse struct {
	ConfirmedRequests []requestResponse `json:"confirmedRequests"`
	RejectedRequests  []requestResponse `json:"rejectedRequests"`
}
