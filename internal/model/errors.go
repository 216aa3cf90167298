package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable category of a domain error.
type ErrorKind string

const (
	KindNotFound                ErrorKind = "NOT_FOUND"
	KindStateConflict           ErrorKind = "STATE_CONFLICT"
	KindCapacityExceeded        ErrorKind = "CAPACITY_EXCEEDED"
	KindModerationNotRequired   ErrorKind = "MODERATION_NOT_REQUIRED"
	KindRequestNotPending       ErrorKind = "REQUEST_NOT_PENDING"
	KindRequestNotBelongToEvent ErrorKind = "REQUEST_NOT_BELONG_TO_EVENT"
	KindSelfParticipation       ErrorKind = "SELF_PARTICIPATION_FORBIDDEN"
	KindDuplicateRequest        ErrorKind = "DUPLICATE_REQUEST"
	KindEventNotPublished       ErrorKind = "EVENT_NOT_PUBLISHED"
	KindEventDateTooSoon        ErrorKind = "EVENT_DATE_TOO_SOON"
	KindConstraintConflict      ErrorKind = "CONSTRAINT_CONFLICT"
	KindForbidden               ErrorKind = "FORBIDDEN"
	KindValidation              ErrorKind = "VALIDATION"
)

// Error is a domain error. Two errors match under errors.Is when their kinds
// are equal, so callers compare against the sentinels below regardless of the
// message attached at the failure site.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is reports whether target is a domain error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds a domain error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound                = &Error{Kind: KindNotFound, Message: "not found"}
	ErrStateConflict           = &Error{Kind: KindStateConflict, Message: "illegal state transition"}
	ErrCapacityExceeded        = &Error{Kind: KindCapacityExceeded, Message: "participant limit reached"}
	ErrModerationNotRequired   = &Error{Kind: KindModerationNotRequired, Message: "event does not require request moderation"}
	ErrRequestNotPending       = &Error{Kind: KindRequestNotPending, Message: "request is not pending"}
	ErrRequestNotBelongToEvent = &Error{Kind: KindRequestNotBelongToEvent, Message: "request does not belong to event"}
	ErrSelfParticipation       = &Error{Kind: KindSelfParticipation, Message: "initiator cannot request participation in own event"}
	ErrDuplicateRequest        = &Error{Kind: KindDuplicateRequest, Message: "participation request already exists"}
	ErrEventNotPublished       = &Error{Kind: KindEventNotPublished, Message: "event is not published"}
	ErrEventDateTooSoon        = &Error{Kind: KindEventDateTooSoon, Message: "event date is too soon"}
	ErrConstraintConflict      = &Error{Kind: KindConstraintConflict, Message: "integrity constraint violated"}
	ErrForbidden               = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrValidation              = &Error{Kind: KindValidation, Message: "validation failed"}
)
