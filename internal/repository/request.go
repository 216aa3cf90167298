package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/eventhub/internal/database"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// RequestRepository handles persistence for participation requests.
type RequestRepository struct {
	db database.DBTX
}

// NewRequestRepository constructs a RequestRepository.
func NewRequestRepository(db database.DBTX) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) conn(ctx context.Context) database.DBTX {
	return database.Conn(ctx, r.db)
}

const requestColumns = `id, event_id, requester_id, status, created`

func scanRequest(s scanner) (model.ParticipationRequest, error) {
	var pr model.ParticipationRequest
	err := s.Scan(&pr.ID, &pr.EventID, &pr.RequesterID, &pr.Status, &pr.Created)
	return pr, err
}

// Create inserts pr and fills in its generated id. A second active request by
// the same user for the same event violates a partial unique index and comes
// back as a duplicate-request error.
func (r *RequestRepository) Create(ctx context.Context, pr *model.ParticipationRequest) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO participation_requests (event_id, requester_id, status, created)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		pr.EventID, pr.RequesterID, string(pr.Status), pr.Created,
	).Scan(&pr.ID)
	return translate(err, "event", "insert participation request")
}

// GetByID returns a single request or a not-found error.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*model.ParticipationRequest, error) {
	pr, err := scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestColumns+` FROM participation_requests WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("participation request %d", id), "get participation request")
	}
	return &pr, nil
}

// GetForUpdate reads the request and locks its row for the transaction.
func (r *RequestRepository) GetForUpdate(ctx context.Context, id int64) (*model.ParticipationRequest, error) {
	pr, err := scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestColumns+` FROM participation_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("participation request %d", id), "lock participation request")
	}
	return &pr, nil
}

// GetByIDsForUpdate locks and returns the requests with the given ids,
// ordered by id so concurrent batches acquire row locks in the same order.
// Missing ids are simply absent from the result.
func (r *RequestRepository) GetByIDsForUpdate(ctx context.Context, ids []int64) ([]model.ParticipationRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+requestColumns+`
		 FROM participation_requests
		 WHERE id = ANY($1)
		 ORDER BY id
		 FOR UPDATE`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("lock participation requests: %w", err)
	}
	requests, err := collect(rows, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("scan participation request: %w", err)
	}
	return requests, nil
}

// HasActive reports whether the user holds a request for the event that has
// not been canceled.
func (r *RequestRepository) HasActive(ctx context.Context, requesterID, eventID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM participation_requests
		     WHERE requester_id = $1 AND event_id = $2 AND status <> 'CANCELED'
		 )`,
		requesterID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return exists, nil
}

// SetStatus moves every listed request to status.
func (r *RequestRepository) SetStatus(ctx context.Context, ids []int64, status model.RequestStatus) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE participation_requests SET status = $2 WHERE id = ANY($1)`,
		ids, string(status))
	return translate(err, "participation request", "update participation request status")
}

// ListByEvent returns all requests for an event in submission order.
func (r *RequestRepository) ListByEvent(ctx context.Context, eventID int64) ([]model.ParticipationRequest, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+requestColumns+`
		 FROM participation_requests
		 WHERE event_id = $1
		 ORDER BY created ASC, id ASC`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list participation requests: %w", err)
	}
	requests, err := collect(rows, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("scan participation request: %w", err)
	}
	return requests, nil
}

// ListByRequester returns all requests a user made, oldest first.
func (r *RequestRepository) ListByRequester(ctx context.Context, userID int64) ([]model.ParticipationRequest, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+requestColumns+`
		 FROM participation_requests
		 WHERE requester_id = $1
		 ORDER BY created ASC, id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list user participation requests: %w", err)
	}
	requests, err := collect(rows, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("scan participation request: %w", err)
	}
	return requests, nil
}
