package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/eventhub/internal/database"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// EventRepository handles persistence for events, their locations and their
// admin comments.
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) conn(ctx context.Context) database.DBTX {
	return database.Conn(ctx, r.db)
}

const eventColumns = `e.id, e.title, e.annotation, e.description, e.category_id, e.initiator_id,
	l.id, l.lat, l.lon, e.event_date, e.created_on, e.published_on,
	e.participant_limit, e.confirmed_requests, e.request_moderation, e.paid, e.state`

const eventFrom = ` FROM events e JOIN locations l ON l.id = e.location_id`

func scanEvent(s scanner) (model.Event, error) {
	var e model.Event
	err := s.Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID,
		&e.Location.ID, &e.Location.Lat, &e.Location.Lon, &e.EventDate, &e.CreatedOn, &e.PublishedOn,
		&e.ParticipantLimit, &e.ConfirmedRequests, &e.RequestModeration, &e.Paid, &e.State,
	)
	return e, err
}

// Create inserts ev and fills in its generated id.
func (r *EventRepository) Create(ctx context.Context, ev *model.Event) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO events (title, annotation, description, category_id, initiator_id, location_id,
		                     event_date, created_on, participant_limit, confirmed_requests,
		                     request_moderation, paid, state)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		ev.Title, ev.Annotation, ev.Description, ev.CategoryID, ev.InitiatorID, ev.Location.ID,
		ev.EventDate, ev.CreatedOn, ev.ParticipantLimit, ev.ConfirmedRequests,
		ev.RequestModeration, ev.Paid, string(ev.State),
	).Scan(&ev.ID)
	return translate(err, "event", "insert event")
}

// GetByID returns a single event or a not-found error.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventColumns+eventFrom+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("event %d", id), "get event")
	}
	return &e, nil
}

// GetForUpdate reads the event and takes an exclusive row lock on it that is
// held until the surrounding transaction ends. Concurrent admission
// operations on the same event queue up behind this lock, so the read of
// confirmed_requests and the write that follows cannot interleave.
func (r *EventRepository) GetForUpdate(ctx context.Context, id int64) (*model.Event, error) {
	if !database.InTx(ctx) {
		return nil, fmt.Errorf("lock event %d: no transaction in context", id)
	}
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventColumns+eventFrom+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("event %d", id), "lock event row")
	}
	return &e, nil
}

// Update writes every editable column of ev. The confirmed_requests counter
// is only changed through AdjustConfirmed.
func (r *EventRepository) Update(ctx context.Context, ev *model.Event) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE events
		 SET title = $2, annotation = $3, description = $4, category_id = $5, location_id = $6,
		     event_date = $7, published_on = $8, participant_limit = $9,
		     request_moderation = $10, paid = $11, state = $12
		 WHERE id = $1`,
		ev.ID, ev.Title, ev.Annotation, ev.Description, ev.CategoryID, ev.Location.ID,
		ev.EventDate, ev.PublishedOn, ev.ParticipantLimit,
		ev.RequestModeration, ev.Paid, string(ev.State),
	)
	if err != nil {
		return translate(err, "event", "update event")
	}
	if tag.RowsAffected() == 0 {
		return model.Errorf(model.KindNotFound, "event %d not found", ev.ID)
	}
	return nil
}

// AdjustConfirmed adds delta to the confirmed counter, refusing any change
// that would push a limited event past its participant limit or the counter
// below zero. It returns the new counter value.
func (r *EventRepository) AdjustConfirmed(ctx context.Context, eventID int64, delta int) (int, error) {
	var confirmed int
	err := r.conn(ctx).QueryRow(ctx,
		`UPDATE events
		 SET confirmed_requests = confirmed_requests + $2
		 WHERE id = $1
		   AND confirmed_requests + $2 >= 0
		   AND (participant_limit = 0 OR confirmed_requests + $2 <= participant_limit)
		 RETURNING confirmed_requests`,
		eventID, delta,
	).Scan(&confirmed)
	if err != nil {
		err = translate(err, "event", "adjust confirmed requests")
		if errors.Is(err, model.ErrNotFound) {
			return 0, model.Errorf(model.KindCapacityExceeded,
				"event %d cannot take %+d confirmed participants", eventID, delta)
		}
		return 0, err
	}
	return confirmed, nil
}

// List returns one page of events matching f in chronological order.
func (r *EventRepository) List(ctx context.Context, f model.EventFilter, offset, limit int) ([]model.Event, error) {
	where, args := eventWhere(f)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventColumns+eventFrom+where+
			fmt.Sprintf(` ORDER BY e.event_date ASC, e.id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events, err := collect(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return events, nil
}

// ListIDs returns the ids of every event matching f, unpaged, in the same
// order List would return them.
func (r *EventRepository) ListIDs(ctx context.Context, f model.EventFilter) ([]int64, error) {
	where, args := eventWhere(f)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT e.id FROM events e`+where+` ORDER BY e.event_date ASC, e.id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list event ids: %w", err)
	}
	ids, err := collect(rows, func(s scanner) (int64, error) {
		var id int64
		err := s.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan event id: %w", err)
	}
	return ids, nil
}

// GetByIDs returns the events with the given ids in no particular order.
func (r *EventRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventColumns+eventFrom+` WHERE e.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	events, err := collect(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return events, nil
}

// ListByInitiator returns one page of the events a user created, newest first.
func (r *EventRepository) ListByInitiator(ctx context.Context, userID int64, offset, limit int) ([]model.Event, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventColumns+eventFrom+`
		 WHERE e.initiator_id = $1
		 ORDER BY e.created_on DESC, e.id DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list initiator events: %w", err)
	}
	events, err := collect(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return events, nil
}

// FindOrCreateLocation returns the id of the location at the exact
// coordinates, inserting it on first use.
func (r *EventRepository) FindOrCreateLocation(ctx context.Context, loc model.Location) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO locations (lat, lon) VALUES ($1, $2)
		 ON CONFLICT (lat, lon) DO UPDATE SET lat = EXCLUDED.lat
		 RETURNING id`,
		loc.Lat, loc.Lon,
	).Scan(&id)
	if err != nil {
		return 0, translate(err, "location", "upsert location")
	}
	return id, nil
}

// AddComment appends an admin comment and fills in its id.
func (r *EventRepository) AddComment(ctx context.Context, c *model.AdminComment) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO event_admin_comments (event_id, text, created) VALUES ($1, $2, $3) RETURNING id`,
		c.EventID, c.Text, c.Created,
	).Scan(&c.ID)
	return translate(err, "event", "insert admin comment")
}

// ListComments returns an event's admin comments oldest first.
func (r *EventRepository) ListComments(ctx context.Context, eventID int64) ([]model.AdminComment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, event_id, text, created
		 FROM event_admin_comments
		 WHERE event_id = $1
		 ORDER BY created ASC, id ASC`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list admin comments: %w", err)
	}
	comments, err := collect(rows, func(s scanner) (model.AdminComment, error) {
		var c model.AdminComment
		err := s.Scan(&c.ID, &c.EventID, &c.Text, &c.Created)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan admin comment: %w", err)
	}
	return comments, nil
}
