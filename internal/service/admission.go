package service

import (
	"context"
	"log/slog"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// AdmissionService decides who gets to attend an event. Every mutation locks
// the event row first, so the confirmed counter is read and written by one
// operation at a time per event.
type AdmissionService struct {
	tx       Transactor
	events   EventStore
	requests RequestStore
	dir      Directory
	now      Clock
}

// NewAdmissionService constructs an AdmissionService with its dependencies.
func NewAdmissionService(tx Transactor, events EventStore, requests RequestStore, dir Directory) *AdmissionService {
	return &AdmissionService{tx: tx, events: events, requests: requests, dir: dir, now: utcNow}
}

// WithClock replaces the service's time source.
func (s *AdmissionService) WithClock(now Clock) *AdmissionService {
	s.now = now
	return s
}

// Create files a participation request. Events without moderation, or
// without a participant limit, confirm the request on arrival.
func (s *AdmissionService) Create(ctx context.Context, requesterID, eventID int64) (*model.ParticipationRequest, error) {
	var pr *model.ParticipationRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := requireUser(ctx, s.dir, requesterID); err != nil {
			return err
		}
		ev, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.InitiatorID == requesterID {
			return model.Errorf(model.KindSelfParticipation,
				"user %d is the initiator of event %d", requesterID, eventID)
		}
		if ev.State != model.StatePublished {
			return model.Errorf(model.KindEventNotPublished, "event %d is %s", eventID, ev.State)
		}
		dup, err := s.requests.HasActive(ctx, requesterID, eventID)
		if err != nil {
			return err
		}
		if dup {
			return model.Errorf(model.KindDuplicateRequest,
				"user %d already requested to join event %d", requesterID, eventID)
		}
		if ev.IsFull() {
			return model.Errorf(model.KindCapacityExceeded,
				"event %d reached its limit of %d participants", eventID, ev.ParticipantLimit)
		}

		status := model.RequestPending
		if !ev.NeedsModeration() {
			status = model.RequestConfirmed
			if _, err := s.events.AdjustConfirmed(ctx, eventID, 1); err != nil {
				return err
			}
		}
		pr = &model.ParticipationRequest{
			EventID:     eventID,
			RequesterID: requesterID,
			Status:      status,
			Created:     s.now(),
		}
		return s.requests.Create(ctx, pr)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("participation request created",
		slog.Int64("request_id", pr.ID),
		slog.Int64("event_id", eventID),
		slog.String("status", string(pr.Status)),
	)
	return pr, nil
}

// ChangeStatuses confirms or rejects a batch of pending requests on behalf
// of the event's initiator. The batch is validated as a whole before
// anything is written. When confirming, free places go to requests in the
// order they are listed and the remainder is rejected.
func (s *AdmissionService) ChangeStatuses(ctx context.Context, userID, eventID int64, ids []int64, target model.RequestStatus) (*model.StatusUpdateResult, error) {
	if target != model.RequestConfirmed && target != model.RequestRejected {
		return nil, model.Errorf(model.KindValidation, "status must be CONFIRMED or REJECTED, got %q", target)
	}
	ids = dedupe(ids)

	result := &model.StatusUpdateResult{
		Confirmed: []model.ParticipationRequest{},
		Rejected:  []model.ParticipationRequest{},
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := requireUser(ctx, s.dir, userID); err != nil {
			return err
		}
		ev, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.InitiatorID != userID {
			return model.Errorf(model.KindForbidden, "user %d is not the initiator of event %d", userID, eventID)
		}
		if !ev.NeedsModeration() {
			return model.Errorf(model.KindModerationNotRequired, "event %d confirms requests automatically", eventID)
		}
		if target == model.RequestConfirmed && ev.IsFull() {
			return model.Errorf(model.KindCapacityExceeded,
				"event %d reached its limit of %d participants", eventID, ev.ParticipantLimit)
		}

		locked, err := s.requests.GetByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]model.ParticipationRequest, len(locked))
		for _, pr := range locked {
			byID[pr.ID] = pr
		}
		for _, id := range ids {
			pr, ok := byID[id]
			switch {
			case !ok:
				return model.Errorf(model.KindNotFound, "participation request %d not found", id)
			case pr.Status != model.RequestPending:
				return model.Errorf(model.KindRequestNotPending, "participation request %d is %s", id, pr.Status)
			case pr.EventID != eventID:
				return model.Errorf(model.KindRequestNotBelongToEvent,
					"participation request %d does not belong to event %d", id, eventID)
			}
		}

		slots := 0
		if target == model.RequestConfirmed {
			slots = ev.Remaining()
		}
		var confirmIDs, rejectIDs []int64
		for _, id := range ids {
			pr := byID[id]
			if len(confirmIDs) < slots {
				pr.Status = model.RequestConfirmed
				confirmIDs = append(confirmIDs, id)
				result.Confirmed = append(result.Confirmed, pr)
				continue
			}
			pr.Status = model.RequestRejected
			rejectIDs = append(rejectIDs, id)
			result.Rejected = append(result.Rejected, pr)
		}

		if len(confirmIDs) > 0 {
			if _, err := s.events.AdjustConfirmed(ctx, eventID, len(confirmIDs)); err != nil {
				return err
			}
			if err := s.requests.SetStatus(ctx, confirmIDs, model.RequestConfirmed); err != nil {
				return err
			}
		}
		return s.requests.SetStatus(ctx, rejectIDs, model.RequestRejected)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("participation requests resolved",
		slog.Int64("event_id", eventID),
		slog.Int("confirmed", len(result.Confirmed)),
		slog.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// Cancel withdraws the requester's own request. Cancelling a confirmed
// request frees its place; cancelling twice changes nothing.
func (s *AdmissionService) Cancel(ctx context.Context, userID, requestID int64) (*model.ParticipationRequest, error) {
	var pr *model.ParticipationRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := requireUser(ctx, s.dir, userID); err != nil {
			return err
		}
		found, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if found.RequesterID != userID {
			return model.Errorf(model.KindNotFound, "participation request %d not found for user %d", requestID, userID)
		}

		// Event row before request row, as in every other admission path.
		if _, err := s.events.GetForUpdate(ctx, found.EventID); err != nil {
			return err
		}
		pr, err = s.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if pr.Status == model.RequestCanceled {
			return nil
		}
		if pr.Status == model.RequestConfirmed {
			if _, err := s.events.AdjustConfirmed(ctx, pr.EventID, -1); err != nil {
				return err
			}
		}
		if err := s.requests.SetStatus(ctx, []int64{pr.ID}, model.RequestCanceled); err != nil {
			return err
		}
		pr.Status = model.RequestCanceled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// ListForRequester returns every request userID has made.
func (s *AdmissionService) ListForRequester(ctx context.Context, userID int64) ([]model.ParticipationRequest, error) {
	if err := requireUser(ctx, s.dir, userID); err != nil {
		return nil, err
	}
	return s.requests.ListByRequester(ctx, userID)
}

// ListForEvent returns the requests filed for an event, visible to its
// initiator only.
func (s *AdmissionService) ListForEvent(ctx context.Context, userID, eventID int64) ([]model.ParticipationRequest, error) {
	if err := requireUser(ctx, s.dir, userID); err != nil {
		return nil, err
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.InitiatorID != userID {
		return nil, model.Errorf(model.KindForbidden, "user %d is not the initiator of event %d", userID, eventID)
	}
	return s.requests.ListByEvent(ctx, eventID)
}
