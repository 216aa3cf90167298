package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/service"
)

// ─── Mocks ────────────────────────────────────────────────────────────────────

type eventsMock struct{ mock.Mock }

func (m *eventsMock) Create(ctx context.Context, userID int64, in model.NewEvent) (*model.Event, error) {
	args := m.Called(ctx, userID, in)
	ev, _ := args.Get(0).(*model.Event)
	return ev, args.Error(1)
}

func (m *eventsMock) ListByOwner(ctx context.Context, userID int64, from, size int) ([]model.Event, error) {
	args := m.Called(ctx, userID, from, size)
	events, _ := args.Get(0).([]model.Event)
	return events, args.Error(1)
}

func (m *eventsMock) GetByOwner(ctx context.Context, userID, eventID int64) (*model.Event, error) {
	args := m.Called(ctx, userID, eventID)
	ev, _ := args.Get(0).(*model.Event)
	return ev, args.Error(1)
}

func (m *eventsMock) UpdateByOwner(ctx context.Context, userID, eventID int64, upd model.EventUpdate) (*model.Event, error) {
	args := m.Called(ctx, userID, eventID, upd)
	ev, _ := args.Get(0).(*model.Event)
	return ev, args.Error(1)
}

func (m *eventsMock) UpdateByAdmin(ctx context.Context, eventID int64, upd model.AdminEventUpdate) (*model.Event, []model.AdminComment, error) {
	args := m.Called(ctx, eventID, upd)
	ev, _ := args.Get(0).(*model.Event)
	comments, _ := args.Get(1).([]model.AdminComment)
	return ev, comments, args.Error(2)
}

type admissionsMock struct{ mock.Mock }

func (m *admissionsMock) Create(ctx context.Context, requesterID, eventID int64) (*model.ParticipationRequest, error) {
	args := m.Called(ctx, requesterID, eventID)
	pr, _ := args.Get(0).(*model.ParticipationRequest)
	return pr, args.Error(1)
}

func (m *admissionsMock) ChangeStatuses(ctx context.Context, userID, eventID int64, ids []int64, target model.RequestStatus) (*model.StatusUpdateResult, error) {
	args := m.Called(ctx, userID, eventID, ids, target)
	res, _ := args.Get(0).(*model.StatusUpdateResult)
	return res, args.Error(1)
}

func (m *admissionsMock) Cancel(ctx context.Context, userID, requestID int64) (*model.ParticipationRequest, error) {
	args := m.Called(ctx, userID, requestID)
	pr, _ := args.Get(0).(*model.ParticipationRequest)
	return pr, args.Error(1)
}

func (m *admissionsMock) ListForRequester(ctx context.Context, userID int64) ([]model.ParticipationRequest, error) {
	args := m.Called(ctx, userID)
	prs, _ := args.Get(0).([]model.ParticipationRequest)
	return prs, args.Error(1)
}

func (m *admissionsMock) ListForEvent(ctx context.Context, userID, eventID int64) ([]model.ParticipationRequest, error) {
	args := m.Called(ctx, userID, eventID)
	prs, _ := args.Get(0).([]model.ParticipationRequest)
	return prs, args.Error(1)
}

type searcherMock struct{ mock.Mock }

func (m *searcherMock) AdminList(ctx context.Context, p model.SearchParams, v service.Visit) ([]model.Event, error) {
	args := m.Called(ctx, p, v)
	events, _ := args.Get(0).([]model.Event)
	return events, args.Error(1)
}

func (m *searcherMock) PublicList(ctx context.Context, p model.SearchParams, v service.Visit) ([]model.Event, error) {
	args := m.Called(ctx, p, v)
	events, _ := args.Get(0).([]model.Event)
	return events, args.Error(1)
}

func (m *searcherMock) GetPublished(ctx context.Context, eventID int64, v service.Visit) (*model.Event, error) {
	args := m.Called(ctx, eventID, v)
	ev, _ := args.Get(0).(*model.Event)
	return ev, args.Error(1)
}

// ─── Fixtures ─────────────────────────────────────────────────────────────────

type fixture struct {
	events     *eventsMock
	admissions *admissionsMock
	search     *searcherMock
	router     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{events: &eventsMock{}, admissions: &admissionsMock{}, search: &searcherMock{}}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	Routes(r, NewEventHandler(f.events, f.search), NewRequestHandler(f.admissions))
	f.router = r
	t.Cleanup(func() {
		f.events.AssertExpectations(t)
		f.admissions.AssertExpectations(t)
		f.search.AssertExpectations(t)
	})
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "10.0.0.7:5555"
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

var when = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleEvent() *model.Event {
	published := when.Add(time.Hour)
	return &model.Event{
		ID:                7,
		Title:             "Jazz night",
		Annotation:        "An evening of live jazz downtown",
		Description:       "Three bands, one stage and a long night of jazz standards",
		CategoryID:        1,
		InitiatorID:       1,
		Location:          model.Location{ID: 3, Lat: 55.75, Lon: 37.61},
		EventDate:         when.Add(48 * time.Hour),
		CreatedOn:         when,
		PublishedOn:       &published,
		ParticipantLimit:  10,
		ConfirmedRequests: 2,
		RequestModeration: true,
		State:             model.StatePublished,
		Views:             5,
	}
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) model.ProblemDetails {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p model.ProblemDetails
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	return p
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetPublished_WireFormat(t *testing.T) {
	f := newFixture(t)
	f.search.On("GetPublished", mock.Anything, int64(7), service.Visit{IP: "10.0.0.7", Path: "/events/7"}).
		Return(sampleEvent(), nil)

	rec := f.do(http.MethodGet, "/events/7", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"id": 7,
		"title": "Jazz night",
		"annotation": "An evening of live jazz downtown",
		"description": "Three bands, one stage and a long night of jazz standards",
		"category": 1,
		"initiator": 1,
		"location": {"lat": 55.75, "lon": 37.61},
		"eventDate": "2030-06-03 12:00:00",
		"createdOn": "2030-06-01 12:00:00",
		"publishedOn": "2030-06-01 13:00:00",
		"participantLimit": 10,
		"confirmedRequests": 2,
		"requestModeration": true,
		"paid": false,
		"state": "PUBLISHED",
		"views": 5
	}`, rec.Body.String())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   model.ErrorKind
	}{
		{model.ErrNotFound, http.StatusNotFound, model.KindNotFound},
		{model.ErrForbidden, http.StatusForbidden, model.KindForbidden},
		{model.ErrValidation, http.StatusBadRequest, model.KindValidation},
		{model.ErrStateConflict, http.StatusConflict, model.KindStateConflict},
		{model.ErrCapacityExceeded, http.StatusConflict, model.KindCapacityExceeded},
		{model.ErrEventDateTooSoon, http.StatusConflict, model.KindEventDateTooSoon},
		{model.ErrDuplicateRequest, http.StatusConflict, model.KindDuplicateRequest},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			f := newFixture(t)
			f.search.On("GetPublished", mock.Anything, int64(7), mock.Anything).Return(nil, tt.err)

			rec := f.do(http.MethodGet, "/events/7", "")

			assert.Equal(t, tt.status, rec.Code)
			p := decodeProblem(t, rec)
			assert.Equal(t, tt.code, p.Code)
			assert.Equal(t, "/events/7", p.Instance)
		})
	}
}

func TestErrorMapping_UnknownErrorIs500(t *testing.T) {
	f := newFixture(t)
	f.search.On("GetPublished", mock.Anything, int64(7), mock.Anything).Return(nil, errors.New("pool closed"))

	rec := f.do(http.MethodGet, "/events/7", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	p := decodeProblem(t, rec)
	assert.NotContains(t, p.Detail, "pool closed")
}

func TestBadPathID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/events/abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.KindValidation, decodeProblem(t, rec).Code)
}

func TestListPublished_QueryParsing(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	paid := true
	want := model.SearchParams{
		Text:          "jazz",
		Categories:    []int64{1, 2, 3},
		Paid:          &paid,
		RangeStart:    &start,
		OnlyAvailable: true,
		Sort:          model.SortViews,
		From:          20,
		Size:          5,
	}
	f.search.On("PublicList", mock.Anything, want, mock.Anything).Return([]model.Event{*sampleEvent()}, nil)

	rec := f.do(http.MethodGet,
		"/events?text=jazz&categories=1,2&categories=3&paid=true&rangeStart=2030-01-01%2000:00:00&onlyAvailable=true&sort=views&from=20&size=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []eventResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
}

func TestListPublished_Defaults(t *testing.T) {
	f := newFixture(t)
	f.search.On("PublicList", mock.Anything, model.SearchParams{Size: 10}, mock.Anything).Return([]model.Event{}, nil)

	rec := f.do(http.MethodGet, "/events", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListPublished_MalformedQuery(t *testing.T) {
	targets := []string{
		"/events?rangeStart=2030-01-01T00:00:00Z",
		"/events?categories=1,x",
		"/events?paid=maybe",
		"/events?size=ten",
	}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			f := newFixture(t)

			rec := f.do(http.MethodGet, target, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAdminListEvents_UsersAndStates(t *testing.T) {
	f := newFixture(t)
	f.search.On("AdminList", mock.Anything, mock.MatchedBy(func(p model.SearchParams) bool {
		return assert.ObjectsAreEqual([]int64{1, 2}, p.Initiators) &&
			assert.ObjectsAreEqual([]model.State{model.StatePending, model.StatePublished}, p.States)
	}), service.Visit{IP: "10.0.0.7", Path: "/admin/events"}).Return([]model.Event{}, nil)

	rec := f.do(http.MethodGet, "/admin/events?users=1,2&states=PENDING&states=PUBLISHED", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)
	f.events.On("Create", mock.Anything, int64(1), mock.MatchedBy(func(in model.NewEvent) bool {
		return in.Title == "Jazz night" &&
			in.EventDate.Equal(time.Date(2030, 6, 3, 12, 0, 0, 0, time.UTC)) &&
			in.RequestModeration == nil &&
			in.Location.Lat == 55.75
	})).Return(sampleEvent(), nil)

	rec := f.do(http.MethodPost, "/users/1/events", `{
		"title": "Jazz night",
		"annotation": "An evening of live jazz downtown",
		"description": "Three bands, one stage and a long night of jazz standards",
		"category": 1,
		"location": {"lat": 55.75, "lon": 37.61},
		"eventDate": "2030-06-03 12:00:00",
		"participantLimit": 10
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateEvent_BadBodies(t *testing.T) {
	bodies := map[string]string{
		"not json":      `{`,
		"unknown field": `{"title":"x","colour":"red"}`,
		"bad date":      `{"title":"Jazz night","eventDate":"tomorrow"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)

			rec := f.do(http.MethodPost, "/users/1/events", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, model.KindValidation, decodeProblem(t, rec).Code)
		})
	}
}

func TestListMyEvents_Paging(t *testing.T) {
	f := newFixture(t)
	f.events.On("ListByOwner", mock.Anything, int64(1), 10, 5).Return([]model.Event{}, nil)

	rec := f.do(http.MethodGet, "/users/1/events?from=10&size=5", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateMyEvent_PartialBody(t *testing.T) {
	f := newFixture(t)
	f.events.On("UpdateByOwner", mock.Anything, int64(1), int64(7), mock.MatchedBy(func(u model.EventUpdate) bool {
		return u.Title != nil && *u.Title == "Blues night" &&
			u.StateAction != nil && *u.StateAction == model.ActionCancelReview &&
			u.Description == nil && u.EventDate == nil
	})).Return(sampleEvent(), nil)

	rec := f.do(http.MethodPatch, "/users/1/events/7", `{"title":"Blues night","stateAction":"CANCEL_REVIEW"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMyEvent_NotOwner(t *testing.T) {
	f := newFixture(t)
	f.events.On("GetByOwner", mock.Anything, int64(2), int64(7)).Return(nil, model.ErrNotFound)

	rec := f.do(http.MethodGet, "/users/2/events/7", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUpdateEvent_ReturnsComments(t *testing.T) {
	f := newFixture(t)
	comment := "Looks good"
	f.events.On("UpdateByAdmin", mock.Anything, int64(7), mock.MatchedBy(func(u model.AdminEventUpdate) bool {
		return u.Comment != nil && *u.Comment == comment &&
			u.StateAction != nil && *u.StateAction == model.ActionPublishEvent
	})).Return(sampleEvent(), []model.AdminComment{{ID: 1, EventID: 7, Text: comment, Created: when}}, nil)

	rec := f.do(http.MethodPatch, "/admin/events/7", `{"stateAction":"PUBLISH_EVENT","adminComment":"Looks good"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var got eventWithCommentsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(7), got.ID)
	require.Len(t, got.AdminComments, 1)
	assert.Equal(t, commentResponse{ID: 1, Text: comment, Created: "2030-06-01 12:00:00"}, got.AdminComments[0])
}

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	f.admissions.On("Create", mock.Anything, int64(2), int64(7)).Return(&model.ParticipationRequest{
		ID: 11, EventID: 7, RequesterID: 2, Status: model.RequestPending, Created: when,
	}, nil)

	rec := f.do(http.MethodPost, "/users/2/requests?eventId=7", "")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":11,"event":7,"requester":2,"status":"PENDING","created":"2030-06-01 12:00:00"}`, rec.Body.String())
}

func TestCreateRequest_MissingEventID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/users/2/requests", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRequest_Conflict(t *testing.T) {
	f := newFixture(t)
	f.admissions.On("Create", mock.Anything, int64(2), int64(7)).Return(nil, model.ErrCapacityExceeded)

	rec := f.do(http.MethodPost, "/users/2/requests?eventId=7", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, model.KindCapacityExceeded, decodeProblem(t, rec).Code)
}

func TestCancelRequest(t *testing.T) {
	f := newFixture(t)
	f.admissions.On("Cancel", mock.Anything, int64(2), int64(11)).Return(&model.ParticipationRequest{
		ID: 11, EventID: 7, RequesterID: 2, Status: model.RequestCanceled, Created: when,
	}, nil)

	rec := f.do(http.MethodPatch, "/users/2/requests/11/cancel", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got requestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, model.RequestCanceled, got.Status)
}

func TestListMyRequests_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	f.admissions.On("ListForRequester", mock.Anything, int64(2)).Return([]model.ParticipationRequest(nil), nil)

	rec := f.do(http.MethodGet, "/users/2/requests", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListEventRequests_Forbidden(t *testing.T) {
	f := newFixture(t)
	f.admissions.On("ListForEvent", mock.Anything, int64(2), int64(7)).Return(nil, model.ErrForbidden)

	rec := f.do(http.MethodGet, "/users/2/events/7/requests", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChangeStatuses(t *testing.T) {
	f := newFixture(t)
	f.admissions.On("ChangeStatuses", mock.Anything, int64(1), int64(7), []int64{11, 12}, model.RequestConfirmed).
		Return(&model.StatusUpdateResult{
			Confirmed: []model.ParticipationRequest{{ID: 11, EventID: 7, RequesterID: 2, Status: model.RequestConfirmed, Created: when}},
			Rejected:  []model.ParticipationRequest{{ID: 12, EventID: 7, RequesterID: 3, Status: model.RequestRejected, Created: when}},
		}, nil)

	rec := f.do(http.MethodPatch, "/users/1/events/7/requests", `{"requestIds":[11,12],"status":"CONFIRMED"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var got statusUpdateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got.ConfirmedRequests, 1)
	require.Len(t, got.RejectedRequests, 1)
	assert.Equal(t, int64(11), got.ConfirmedRequests[0].ID)
	assert.Equal(t, model.RequestRejected, got.RejectedRequests[0].Status)
}

func TestChangeStatuses_BadTarget(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPatch, "/users/1/events/7/requests", `{"requestIds":[11],"status":"CANCELED"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_UnknownOrigin(t *testing.T) {
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, origin := range []string{"", "https://any.example"} {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestLogger_PassesThrough(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]int{"n": 1})
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}
