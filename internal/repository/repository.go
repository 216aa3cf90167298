// Package repository implements all database queries for events, locations,
// participation requests and admin comments.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// PostgreSQL error codes the repositories translate into domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

const (
	constraintActiveRequest    = "participation_requests_active_uniq"
	constraintConfirmedInLimit = "events_confirmed_requests_check"
)

// translate maps driver errors onto domain error kinds. what names the
// entity for not-found messages, op the failing operation for everything else.
func translate(err error, what, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Errorf(model.KindNotFound, "%s not found", what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			if pgErr.ConstraintName == constraintActiveRequest {
				return model.Errorf(model.KindDuplicateRequest, "participation request already exists")
			}
			return model.Errorf(model.KindConstraintConflict, "%s: %s", op, pgErr.Message)
		case codeCheckViolation:
			if pgErr.ConstraintName == constraintConfirmedInLimit {
				return model.Errorf(model.KindCapacityExceeded, "participant limit reached")
			}
			return model.Errorf(model.KindConstraintConflict, "%s: %s", op, pgErr.Message)
		case codeForeignKeyViolation:
			return model.Errorf(model.KindConstraintConflict, "%s: %s", op, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// scanner is implemented by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func collect[T any](rows pgx.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
