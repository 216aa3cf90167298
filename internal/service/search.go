package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/stats"
)

// Visit identifies the caller of a listing: source address and the resource
// path that was requested. It is recorded as one hit per call.
type Visit struct {
	IP   string
	Path string
}

const horizonYears = 100

// SearchService builds filtered, paged event listings, optionally ranked by
// popularity as reported by the stats collaborator.
type SearchService struct {
	events     EventStore
	dir        Directory
	stats      StatsCollaborator
	app        string
	hitTimeout time.Duration
	now        Clock

	pending sync.WaitGroup
}

// NewSearchService constructs a SearchService with its dependencies.
func NewSearchService(events EventStore, dir Directory, collaborator StatsCollaborator, cfg config.StatsConfig) *SearchService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &SearchService{
		events:     events,
		dir:        dir,
		stats:      collaborator,
		app:        cfg.AppName,
		hitTimeout: timeout,
		now:        utcNow,
	}
}

// WithClock replaces the service's time source.
func (s *SearchService) WithClock(now Clock) *SearchService {
	s.now = now
	return s
}

// Drain blocks until every hit recorded so far has been delivered or has
// failed.
func (s *SearchService) Drain() {
	s.pending.Wait()
}

// AdminList lists events in any state. States and initiators narrow the
// result when given.
func (s *SearchService) AdminList(ctx context.Context, p model.SearchParams, v Visit) ([]model.Event, error) {
	if err := checkPage(p); err != nil {
		return nil, err
	}
	if len(p.Initiators) > 0 {
		ok, err := s.dir.UsersExist(ctx, p.Initiators...)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, model.Errorf(model.KindNotFound, "user not found in %v", p.Initiators)
		}
	}
	for _, st := range p.States {
		if !st.Valid() {
			return nil, model.Errorf(model.KindValidation, "unknown state %q", st)
		}
	}

	now := s.now()
	f, err := s.filter(ctx, p, now.AddDate(-horizonYears, 0, 0), now.AddDate(horizonYears, 0, 0))
	if err != nil {
		return nil, err
	}
	f.States = p.States
	f.Initiators = p.Initiators
	return s.list(ctx, f, p, v)
}

// PublicList lists published events. Without an explicit window only
// upcoming events are shown.
func (s *SearchService) PublicList(ctx context.Context, p model.SearchParams, v Visit) ([]model.Event, error) {
	if err := checkPage(p); err != nil {
		return nil, err
	}
	now := s.now()
	f, err := s.filter(ctx, p, now, now.AddDate(horizonYears, 0, 0))
	if err != nil {
		return nil, err
	}
	f.States = []model.State{model.StatePublished}
	return s.list(ctx, f, p, v)
}

// GetPublished returns one published event with its current view count and
// records the visit.
func (s *SearchService) GetPublished(ctx context.Context, eventID int64, v Visit) (*model.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.State != model.StatePublished {
		return nil, model.Errorf(model.KindNotFound, "event %d not found", eventID)
	}

	one := []model.Event{*ev}
	s.stampViews(ctx, one)
	if v.Path == "" {
		v.Path = stats.EventURI(eventID)
	}
	s.recordHit(ctx, v)
	return &one[0], nil
}

func checkPage(p model.SearchParams) error {
	if p.From < 0 {
		return model.Errorf(model.KindValidation, "from must not be negative")
	}
	if p.Size <= 0 {
		return model.Errorf(model.KindValidation, "size must be positive")
	}
	switch p.Sort {
	case "", model.SortViews, model.SortEventDate:
	default:
		return model.Errorf(model.KindValidation, "unknown sort %q", p.Sort)
	}
	return nil
}

func (s *SearchService) filter(ctx context.Context, p model.SearchParams, defStart, defEnd time.Time) (model.EventFilter, error) {
	if len(p.Categories) > 0 {
		if err := requireCategories(ctx, s.dir, p.Categories...); err != nil {
			return model.EventFilter{}, err
		}
	}
	f := model.EventFilter{
		Text:          p.Text,
		Categories:    p.Categories,
		Paid:          p.Paid,
		RangeStart:    defStart,
		RangeEnd:      defEnd,
		OnlyAvailable: p.OnlyAvailable,
	}
	if p.RangeStart != nil {
		f.RangeStart = *p.RangeStart
	}
	if p.RangeEnd != nil {
		f.RangeEnd = *p.RangeEnd
	}
	if f.RangeEnd.Before(f.RangeStart) {
		return model.EventFilter{}, model.Errorf(model.KindValidation, "rangeEnd must not be before rangeStart")
	}
	return f, nil
}

func (s *SearchService) list(ctx context.Context, f model.EventFilter, p model.SearchParams, v Visit) ([]model.Event, error) {
	var (
		events []model.Event
		err    error
	)
	if p.Sort == model.SortEventDate {
		events, err = s.events.List(ctx, f, p.Offset(), p.Size)
	} else {
		events, err = s.rankByViews(ctx, f, p)
	}
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}

	s.stampViews(ctx, events)
	s.recordHit(ctx, v)
	return events, nil
}

// rankByViews orders every matching event by unique views and returns the
// requested page. Without stats every event counts as zero views and the
// page is cut from the store's chronological order.
func (s *SearchService) rankByViews(ctx context.Context, f model.EventFilter, p model.SearchParams) ([]model.Event, error) {
	ids, err := s.events.ListIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	hits := s.views(ctx, ids)
	ranked := make([]int64, len(ids))
	copy(ranked, ids)
	sort.SliceStable(ranked, func(i, j int) bool {
		return hits[ranked[i]] > hits[ranked[j]]
	})

	offset := p.Offset()
	if offset >= len(ranked) {
		return nil, nil
	}
	page := ranked[offset:min(offset+p.Size, len(ranked))]

	fetched, err := s.events.GetByIDs(ctx, page)
	if err != nil {
		return nil, err
	}
	pos := make(map[int64]int, len(page))
	for i, id := range page {
		pos[id] = i
	}
	for i := range fetched {
		fetched[i].Views = hits[fetched[i].ID]
	}
	sort.SliceStable(fetched, func(i, j int) bool {
		if fetched[i].Views != fetched[j].Views {
			return fetched[i].Views > fetched[j].Views
		}
		return pos[fetched[i].ID] < pos[fetched[j].ID]
	})
	return fetched, nil
}

// views returns unique view counts per event id. A failed lookup yields an
// empty map.
func (s *SearchService) views(ctx context.Context, ids []int64) map[int64]int64 {
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = stats.EventURI(id)
	}
	now := s.now()
	rows, err := s.stats.Stats(ctx, stats.Query{
		Start:  now.AddDate(-horizonYears, 0, 0),
		End:    now.AddDate(horizonYears, 0, 0),
		URIs:   uris,
		Unique: true,
		App:    s.app,
	})
	if err != nil {
		slog.Warn("view stats unavailable, counting zero views",
			slog.Int("events", len(ids)),
			slog.Any("error", err),
		)
		return map[int64]int64{}
	}
	return stats.HitsByEvent(rows)
}

func (s *SearchService) stampViews(ctx context.Context, events []model.Event) {
	if len(events) == 0 {
		return
	}
	ids := make([]int64, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}
	hits := s.views(ctx, ids)
	for i := range events {
		events[i].Views = hits[events[i].ID]
	}
}

// recordHit sends the visit in the background. The hit outlives the request
// context but not the hit timeout.
func (s *SearchService) recordHit(ctx context.Context, v Visit) {
	hit := stats.EndpointHit{
		App:       s.app,
		URI:       v.Path,
		IP:        v.IP,
		Timestamp: stats.FormatTime(s.now()),
	}
	detached := context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(detached, s.hitTimeout)
		defer cancel()
		if err := s.stats.Hit(ctx, hit); err != nil {
			slog.Warn("record hit failed", slog.String("uri", hit.URI), slog.Any("error", err))
		}
	}()
}
