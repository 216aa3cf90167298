package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/stats"
)

// memDB is an in-memory stand-in for PostgreSQL. Transactions are serialised
// by txMu, which plays the part of the event row lock, and roll back by
// restoring a snapshot.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID     int64
	events     map[int64]model.Event
	requests   map[int64]model.ParticipationRequest
	comments   []model.AdminComment
	locations  map[[2]float32]int64
	users      map[int64]bool
	categories map[int64]bool
}

func newMemDB() *memDB {
	return &memDB{
		nextID:     100,
		events:     map[int64]model.Event{},
		requests:   map[int64]model.ParticipationRequest{},
		locations:  map[[2]float32]int64{},
		users:      map[int64]bool{},
		categories: map[int64]bool{},
	}
}

type memSnapshot struct {
	nextID    int64
	events    map[int64]model.Event
	requests  map[int64]model.ParticipationRequest
	comments  []model.AdminComment
	locations map[[2]float32]int64
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{
		nextID:    db.nextID,
		events:    make(map[int64]model.Event, len(db.events)),
		requests:  make(map[int64]model.ParticipationRequest, len(db.requests)),
		comments:  append([]model.AdminComment(nil), db.comments...),
		locations: make(map[[2]float32]int64, len(db.locations)),
	}
	for k, v := range db.events {
		s.events[k] = v
	}
	for k, v := range db.requests {
		s.requests[k] = v
	}
	for k, v := range db.locations {
		s.locations[k] = v
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID = s.nextID
	db.events = s.events
	db.requests = s.requests
	db.comments = s.comments
	db.locations = s.locations
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

// WithinTx implements Transactor.
func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	snap := db.snapshot()
	if err := fn(ctx); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *memDB) addUser(ids ...int64) {
	for _, id := range ids {
		db.users[id] = true
	}
}

func (db *memDB) addCategory(ids ...int64) {
	for _, id := range ids {
		db.categories[id] = true
	}
}

func (db *memDB) putEvent(ev model.Event) model.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	if ev.ID == 0 {
		ev.ID = db.id()
	}
	db.events[ev.ID] = ev
	return ev
}

func (db *memDB) putRequest(pr model.ParticipationRequest) model.ParticipationRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	if pr.ID == 0 {
		pr.ID = db.id()
	}
	db.requests[pr.ID] = pr
	return pr
}

func (db *memDB) event(id int64) model.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.events[id]
}

func (db *memDB) request(id int64) model.ParticipationRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.requests[id]
}

func (db *memDB) countStatus(eventID int64, status model.RequestStatus) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, pr := range db.requests {
		if pr.EventID == eventID && pr.Status == status {
			n++
		}
	}
	return n
}

// ─── Directory ────────────────────────────────────────────────────────────────

type memDirectory struct{ db *memDB }

func (d memDirectory) UsersExist(_ context.Context, ids ...int64) (bool, error) {
	for _, id := range ids {
		if !d.db.users[id] {
			return false, nil
		}
	}
	return true, nil
}

func (d memDirectory) CategoriesExist(_ context.Context, ids ...int64) (bool, error) {
	for _, id := range ids {
		if !d.db.categories[id] {
			return false, nil
		}
	}
	return true, nil
}

// ─── EventStore ───────────────────────────────────────────────────────────────

type memEvents struct{ db *memDB }

func (s memEvents) Create(_ context.Context, ev *model.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ev.ID = s.db.id()
	s.db.events[ev.ID] = *ev
	return nil
}

func (s memEvents) GetByID(_ context.Context, id int64) (*model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ev, ok := s.db.events[id]
	if !ok {
		return nil, model.Errorf(model.KindNotFound, "event %d not found", id)
	}
	return &ev, nil
}

func (s memEvents) GetForUpdate(ctx context.Context, id int64) (*model.Event, error) {
	return s.GetByID(ctx, id)
}

func (s memEvents) Update(_ context.Context, ev *model.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.events[ev.ID]
	if !ok {
		return model.Errorf(model.KindNotFound, "event %d not found", ev.ID)
	}
	next := *ev
	next.ConfirmedRequests = cur.ConfirmedRequests
	next.Views = 0
	s.db.events[ev.ID] = next
	return nil
}

func (s memEvents) AdjustConfirmed(_ context.Context, eventID int64, delta int) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ev, ok := s.db.events[eventID]
	n := ev.ConfirmedRequests + delta
	if !ok || n < 0 || (ev.ParticipantLimit > 0 && n > ev.ParticipantLimit) {
		return 0, model.Errorf(model.KindCapacityExceeded, "event %d cannot take %+d", eventID, delta)
	}
	ev.ConfirmedRequests = n
	s.db.events[eventID] = ev
	return n, nil
}

func matches(f model.EventFilter, ev model.Event) bool {
	if f.Text != "" {
		t := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(ev.Title), t) && !strings.Contains(strings.ToLower(ev.Annotation), t) {
			return false
		}
	}
	if len(f.Categories) > 0 && !containsID(f.Categories, ev.CategoryID) {
		return false
	}
	if len(f.Initiators) > 0 && !containsID(f.Initiators, ev.InitiatorID) {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, st := range f.States {
			found = found || st == ev.State
		}
		if !found {
			return false
		}
	}
	if f.Paid != nil && *f.Paid != ev.Paid {
		return false
	}
	if ev.EventDate.Before(f.RangeStart) || ev.EventDate.After(f.RangeEnd) {
		return false
	}
	if f.OnlyAvailable && ev.IsFull() {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s memEvents) matching(f model.EventFilter) []model.Event {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Event
	for _, ev := range s.db.events {
		if matches(f, ev) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.Before(out[j].EventDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s memEvents) List(_ context.Context, f model.EventFilter, offset, limit int) ([]model.Event, error) {
	all := s.matching(f)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (s memEvents) ListIDs(_ context.Context, f model.EventFilter) ([]int64, error) {
	var ids []int64
	for _, ev := range s.matching(f) {
		ids = append(ids, ev.ID)
	}
	return ids, nil
}

func (s memEvents) GetByIDs(_ context.Context, ids []int64) ([]model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Event
	// Reverse the request order so callers cannot rely on it.
	for i := len(ids) - 1; i >= 0; i-- {
		if ev, ok := s.db.events[ids[i]]; ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s memEvents) ListByInitiator(_ context.Context, userID int64, offset, limit int) ([]model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Event
	for _, ev := range s.db.events {
		if ev.InitiatorID == userID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (s memEvents) FindOrCreateLocation(_ context.Context, loc model.Location) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := [2]float32{loc.Lat, loc.Lon}
	if id, ok := s.db.locations[key]; ok {
		return id, nil
	}
	id := s.db.id()
	s.db.locations[key] = id
	return id, nil
}

func (s memEvents) AddComment(_ context.Context, c *model.AdminComment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.ID = s.db.id()
	s.db.comments = append(s.db.comments, *c)
	return nil
}

func (s memEvents) ListComments(_ context.Context, eventID int64) ([]model.AdminComment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.AdminComment
	for _, c := range s.db.comments {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ─── RequestStore ─────────────────────────────────────────────────────────────

type memRequests struct{ db *memDB }

func (s memRequests) Create(_ context.Context, pr *model.ParticipationRequest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.requests {
		if other.EventID == pr.EventID && other.RequesterID == pr.RequesterID && other.Status != model.RequestCanceled {
			return model.Errorf(model.KindDuplicateRequest, "duplicate")
		}
	}
	pr.ID = s.db.id()
	s.db.requests[pr.ID] = *pr
	return nil
}

func (s memRequests) GetByID(_ context.Context, id int64) (*model.ParticipationRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	pr, ok := s.db.requests[id]
	if !ok {
		return nil, model.Errorf(model.KindNotFound, "participation request %d not found", id)
	}
	return &pr, nil
}

func (s memRequests) GetForUpdate(ctx context.Context, id int64) (*model.ParticipationRequest, error) {
	return s.GetByID(ctx, id)
}

func (s memRequests) GetByIDsForUpdate(_ context.Context, ids []int64) ([]model.ParticipationRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.ParticipationRequest
	for _, id := range ids {
		if pr, ok := s.db.requests[id]; ok {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memRequests) HasActive(_ context.Context, requesterID, eventID int64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, pr := range s.db.requests {
		if pr.EventID == eventID && pr.RequesterID == requesterID && pr.Status != model.RequestCanceled {
			return true, nil
		}
	}
	return false, nil
}

func (s memRequests) SetStatus(_ context.Context, ids []int64, status model.RequestStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, id := range ids {
		pr := s.db.requests[id]
		pr.Status = status
		s.db.requests[id] = pr
	}
	return nil
}

func (s memRequests) list(keep func(model.ParticipationRequest) bool) []model.ParticipationRequest {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.ParticipationRequest
	for _, pr := range s.db.requests {
		if keep(pr) {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s memRequests) ListByEvent(_ context.Context, eventID int64) ([]model.ParticipationRequest, error) {
	return s.list(func(pr model.ParticipationRequest) bool { return pr.EventID == eventID }), nil
}

func (s memRequests) ListByRequester(_ context.Context, userID int64) ([]model.ParticipationRequest, error) {
	return s.list(func(pr model.ParticipationRequest) bool { return pr.RequesterID == userID }), nil
}

// ─── Stats collaborator ───────────────────────────────────────────────────────

type statsMock struct{ mock.Mock }

func (m *statsMock) Hit(ctx context.Context, hit stats.EndpointHit) error {
	args := m.Called(ctx, hit)
	return args.Error(0)
}

func (m *statsMock) Stats(ctx context.Context, q stats.Query) ([]stats.ViewStats, error) {
	args := m.Called(ctx, q)
	rows, _ := args.Get(0).([]stats.ViewStats)
	return rows, args.Error(1)
}

// ─── Fixtures ─────────────────────────────────────────────────────────────────

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func publishedEvent(initiator int64, limit int, moderation bool) model.Event {
	published := testNow.Add(-time.Hour)
	return model.Event{
		Title:             "Jazz night",
		Annotation:        "An evening of live jazz downtown",
		Description:       "Three bands, one stage and a long night of jazz standards",
		CategoryID:        1,
		InitiatorID:       initiator,
		EventDate:         testNow.Add(72 * time.Hour),
		CreatedOn:         testNow.Add(-48 * time.Hour),
		PublishedOn:       &published,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		State:             model.StatePublished,
	}
}
