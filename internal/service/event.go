package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/lifecycle"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// EventService handles event authoring by initiators and moderation by
// admins.
type EventService struct {
	tx      Transactor
	events  EventStore
	dir     Directory
	minLead time.Duration
	now     Clock
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(tx Transactor, events EventStore, dir Directory, cfg config.EventsConfig) *EventService {
	return &EventService{
		tx:      tx,
		events:  events,
		dir:     dir,
		minLead: cfg.MinLeadTime,
		now:     utcNow,
	}
}

// WithClock replaces the service's time source.
func (s *EventService) WithClock(now Clock) *EventService {
	s.now = now
	return s
}

// checkDate rejects dates earlier than now plus the minimum lead time. A date
// exactly on the boundary is accepted.
func (s *EventService) checkDate(date time.Time) error {
	earliest := s.now().Add(s.minLead)
	if date.Before(earliest) {
		return model.Errorf(model.KindEventDateTooSoon,
			"event date %s is earlier than %s", date.Format(model.DateTimeLayout), earliest.Format(model.DateTimeLayout))
	}
	return nil
}

// Create stores a new PENDING event authored by userID.
func (s *EventService) Create(ctx context.Context, userID int64, in model.NewEvent) (*model.Event, error) {
	if err := validateNewEvent(in); err != nil {
		return nil, err
	}
	if err := s.checkDate(in.EventDate); err != nil {
		return nil, err
	}

	moderation := true
	if in.RequestModeration != nil {
		moderation = *in.RequestModeration
	}
	ev := &model.Event{
		Title:             in.Title,
		Annotation:        in.Annotation,
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		InitiatorID:       userID,
		Location:          in.Location,
		EventDate:         in.EventDate,
		CreatedOn:         s.now(),
		ParticipantLimit:  in.ParticipantLimit,
		RequestModeration: moderation,
		Paid:              in.Paid,
		State:             model.StatePending,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := requireUser(ctx, s.dir, userID); err != nil {
			return err
		}
		if err := requireCategories(ctx, s.dir, in.CategoryID); err != nil {
			return err
		}
		locID, err := s.events.FindOrCreateLocation(ctx, in.Location)
		if err != nil {
			return err
		}
		ev.Location.ID = locID
		return s.events.Create(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("event created", slog.Int64("event_id", ev.ID), slog.Int64("initiator_id", userID))
	return ev, nil
}

// ListByOwner returns one page of the events userID created.
func (s *EventService) ListByOwner(ctx context.Context, userID int64, from, size int) ([]model.Event, error) {
	if err := requireUser(ctx, s.dir, userID); err != nil {
		return nil, err
	}
	p := model.SearchParams{From: from, Size: size}
	return s.events.ListByInitiator(ctx, userID, p.Offset(), size)
}

// GetByOwner returns an event as seen by its initiator. Events owned by
// someone else are reported as not found.
func (s *EventService) GetByOwner(ctx context.Context, userID, eventID int64) (*model.Event, error) {
	if err := requireUser(ctx, s.dir, userID); err != nil {
		return nil, err
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.InitiatorID != userID {
		return nil, model.Errorf(model.KindNotFound, "event %d not found for user %d", eventID, userID)
	}
	return ev, nil
}

// UpdateByOwner applies an initiator's edit. Only unpublished events can be
// changed, and only owner state actions are accepted.
func (s *EventService) UpdateByOwner(ctx context.Context, userID, eventID int64, upd model.EventUpdate) (*model.Event, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}

	var ev *model.Event
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := requireUser(ctx, s.dir, userID); err != nil {
			return err
		}
		var err error
		ev, err = s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.InitiatorID != userID {
			return model.Errorf(model.KindNotFound, "event %d not found for user %d", eventID, userID)
		}
		if !lifecycle.OwnerCanEdit(ev.State) {
			return model.Errorf(model.KindStateConflict, "event %d is %s and can no longer be changed", eventID, ev.State)
		}
		return s.apply(ctx, ev, lifecycle.RoleOwner, upd)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// UpdateByAdmin applies a moderator's edit and returns the event together
// with its full comment trail.
func (s *EventService) UpdateByAdmin(ctx context.Context, eventID int64, upd model.AdminEventUpdate) (*model.Event, []model.AdminComment, error) {
	if err := validateUpdate(upd.EventUpdate); err != nil {
		return nil, nil, err
	}
	if upd.Comment != nil && strings.TrimSpace(*upd.Comment) == "" {
		return nil, nil, model.Errorf(model.KindValidation, "admin comment must not be blank")
	}

	var (
		ev       *model.Event
		comments []model.AdminComment
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ev, err = s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, ev, lifecycle.RoleAdmin, upd.EventUpdate); err != nil {
			return err
		}
		if upd.Comment != nil {
			c := &model.AdminComment{EventID: ev.ID, Text: *upd.Comment, Created: s.now()}
			if err := s.events.AddComment(ctx, c); err != nil {
				return err
			}
		}
		comments, err = s.events.ListComments(ctx, ev.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return ev, comments, nil
}

// apply runs the state action first and only then the field deltas, so a
// rejected action leaves nothing to persist.
func (s *EventService) apply(ctx context.Context, ev *model.Event, role lifecycle.Role, upd model.EventUpdate) error {
	if upd.StateAction != nil {
		from := ev.State
		if err := lifecycle.Apply(ev, role, *upd.StateAction, s.now()); err != nil {
			return err
		}
		slog.Info("event state changed",
			slog.Int64("event_id", ev.ID),
			slog.String("role", string(role)),
			slog.String("from", string(from)),
			slog.String("to", string(ev.State)),
		)
	}

	if upd.Title != nil {
		ev.Title = *upd.Title
	}
	if upd.Annotation != nil {
		ev.Annotation = *upd.Annotation
	}
	if upd.Description != nil {
		ev.Description = *upd.Description
	}
	if upd.CategoryID != nil {
		if err := requireCategories(ctx, s.dir, *upd.CategoryID); err != nil {
			return err
		}
		ev.CategoryID = *upd.CategoryID
	}
	if upd.EventDate != nil {
		if err := s.checkDate(*upd.EventDate); err != nil {
			return err
		}
		ev.EventDate = *upd.EventDate
	}
	if upd.Location != nil {
		id, err := s.events.FindOrCreateLocation(ctx, *upd.Location)
		if err != nil {
			return err
		}
		ev.Location = model.Location{ID: id, Lat: upd.Location.Lat, Lon: upd.Location.Lon}
	}
	if upd.ParticipantLimit != nil {
		limit := *upd.ParticipantLimit
		if limit > 0 && limit < ev.ConfirmedRequests {
			return model.Errorf(model.KindCapacityExceeded,
				"event %d already has %d confirmed participants", ev.ID, ev.ConfirmedRequests)
		}
		ev.ParticipantLimit = limit
	}
	if upd.RequestModeration != nil {
		ev.RequestModeration = *upd.RequestModeration
	}
	if upd.Paid != nil {
		ev.Paid = *upd.Paid
	}

	return s.events.Update(ctx, ev)
}
