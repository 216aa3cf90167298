// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/stats"
)

// EventStore persists events, their locations and admin comments.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Event, error)
	Update(ctx context.Context, ev *model.Event) error
	AdjustConfirmed(ctx context.Context, eventID int64, delta int) (int, error)
	List(ctx context.Context, f model.EventFilter, offset, limit int) ([]model.Event, error)
	ListIDs(ctx context.Context, f model.EventFilter) ([]int64, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Event, error)
	ListByInitiator(ctx context.Context, userID int64, offset, limit int) ([]model.Event, error)
	FindOrCreateLocation(ctx context.Context, loc model.Location) (int64, error)
	AddComment(ctx context.Context, c *model.AdminComment) error
	ListComments(ctx context.Context, eventID int64) ([]model.AdminComment, error)
}

// RequestStore persists participation requests.
type RequestStore interface {
	Create(ctx context.Context, pr *model.ParticipationRequest) error
	GetByID(ctx context.Context, id int64) (*model.ParticipationRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*model.ParticipationRequest, error)
	GetByIDsForUpdate(ctx context.Context, ids []int64) ([]model.ParticipationRequest, error)
	HasActive(ctx context.Context, requesterID, eventID int64) (bool, error)
	SetStatus(ctx context.Context, ids []int64, status model.RequestStatus) error
	ListByEvent(ctx context.Context, eventID int64) ([]model.ParticipationRequest, error)
	ListByRequester(ctx context.Context, userID int64) ([]model.ParticipationRequest, error)
}

// Directory answers existence checks for users and categories.
type Directory interface {
	UsersExist(ctx context.Context, ids ...int64) (bool, error)
	CategoriesExist(ctx context.Context, ids ...int64) (bool, error)
}

// Transactor runs fn inside one atomic unit of work.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatsCollaborator records visits and reports visit counts.
type StatsCollaborator interface {
	Hit(ctx context.Context, hit stats.EndpointHit) error
	Stats(ctx context.Context, q stats.Query) ([]stats.ViewStats, error)
}

// Clock returns the current time.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func requireUser(ctx context.Context, dir Directory, userID int64) error {
	ok, err := dir.UsersExist(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return model.Errorf(model.KindNotFound, "user %d not found", userID)
	}
	return nil
}

func requireCategories(ctx context.Context, dir Directory, ids ...int64) error {
	ok, err := dir.CategoriesExist(ctx, ids...)
	if err != nil {
		return err
	}
	if !ok {
		return model.Errorf(model.KindNotFound, "category not found in %v", ids)
	}
	return nil
}
