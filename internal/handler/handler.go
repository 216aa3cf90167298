// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/service"
)

// EventManager authors and moderates events.
type EventManager interface {
	Create(ctx context.Context, userID int64, in model.NewEvent) (*model.Event, error)
	ListByOwner(ctx context.Context, userID int64, from, size int) ([]model.Event, error)
	GetByOwner(ctx context.Context, userID, eventID int64) (*model.Event, error)
	UpdateByOwner(ctx context.Context, userID, eventID int64, upd model.EventUpdate) (*model.Event, error)
	UpdateByAdmin(ctx context.Context, eventID int64, upd model.AdminEventUpdate) (*model.Event, []model.AdminComment, error)
}

// Admissions manages participation requests.
type Admissions interface {
	Create(ctx context.Context, requesterID, eventID int64) (*model.ParticipationRequest, error)
	ChangeStatuses(ctx context.Context, userID, eventID int64, ids []int64, target model.RequestStatus) (*model.StatusUpdateResult, error)
	Cancel(ctx context.Context, userID, requestID int64) (*model.ParticipationRequest, error)
	ListForRequester(ctx context.Context, userID int64) ([]model.ParticipationRequest, error)
	ListForEvent(ctx context.Context, userID, eventID int64) ([]model.ParticipationRequest, error)
}

// Searcher lists and reads events for the public and for admins.
type Searcher interface {
	AdminList(ctx context.Context, p model.SearchParams, v service.Visit) ([]model.Event, error)
	PublicList(ctx context.Context, p model.SearchParams, v service.Visit) ([]model.Event, error)
	GetPublished(ctx context.Context, eventID int64, v service.Visit) (*model.Event, error)
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	p := model.NewBadRequestError(detail)
	p.Instance = r.URL.Path
	p.WriteJSON(w)
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

// writeServiceError turns a domain error into problem details carrying its
// kind. Anything else is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *model.Error
	if !errors.As(err, &de) {
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
		p := model.NewInternalError("")
		p.Instance = r.URL.Path
		p.WriteJSON(w)
		return
	}
	p := model.NewProblem(statusFor(de.Kind), de.Kind, de.Error())
	p.Instance = r.URL.Path
	p.WriteJSON(w)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Errorf(model.KindValidation, "%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// visitOf extracts the caller address and requested path. RealIP has
// already rewritten RemoteAddr when a proxy header was present.
func visitOf(r *http.Request) service.Visit {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.Visit{IP: ip, Path: r.URL.Path}
}

// ─── Query parsing ────────────────────────────────────────────────────────────

type query struct {
	values map[string][]string
	err    error
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query()}
}

func (q *query) fail(format string, args ...any) {
	if q.err == nil {
		q.err = model.Errorf(model.KindValidation, format, args...)
	}
}

// list accepts both repeated keys and comma separated values.
func (q *query) list(key string) []string {
	var out []string
	for _, v := range q.values[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (q *query) str(key string) string {
	if v := q.values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (q *query) ints(key string) []int64 {
	var out []int64
	for _, s := range q.list(key) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			q.fail("%s must contain integers, got %q", key, s)
			return nil
		}
		out = append(out, n)
	}
	return out
}

func (q *query) integer(key string, def int) int {
	s := q.str(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		q.fail("%s must be an integer, got %q", key, s)
		return def
	}
	return n
}

func (q *query) boolean(key string) *bool {
	s := q.str(key)
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		q.fail("%s must be a boolean, got %q", key, s)
		return nil
	}
	return &b
}

func (q *query) timestamp(key string) *time.Time {
	s := q.str(key)
	if s == "" {
		return nil
	}
	t, err := parseTime(s)
	if err != nil {
		q.fail("%s must use layout %q", key, model.DateTimeLayout)
		return nil
	}
	return &t
}

// searchParams reads the filter vocabulary shared by public and admin
// listings.
func (q *query) searchParams() model.SearchParams {
	p := model.SearchParams{
		Text:       q.str("text"),
		Categories: q.ints("categories"),
		Paid:       q.boolean("paid"),
		RangeStart: q.timestamp("rangeStart"),
		RangeEnd:   q.timestamp("rangeEnd"),
		Sort:       model.EventSort(strings.ToUpper(q.str("sort"))),
		From:       q.integer("from", 0),
		Size:       q.integer("size", 10),
	}
	if b := q.boolean("onlyAvailable"); b != nil {
		p.OnlyAvailable = *b
	}
	return p
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
