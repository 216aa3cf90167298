package statsserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/stats"
)

// Handler serves the stats wire contract.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts POST /hit and GET /stats.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/hit", h.SaveHit)
	r.Get("/stats", h.GetStats)
}

// SaveHit handles POST /hit and echoes the stored hit with its id.
func (h *Handler) SaveHit(w http.ResponseWriter, r *http.Request) {
	var in stats.EndpointHit
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		model.NewBadRequestError("invalid request body: " + err.Error()).WriteJSON(w)
		return
	}
	if in.App == "" || in.URI == "" || in.IP == "" {
		model.NewBadRequestError("app, uri and ip are required").WriteJSON(w)
		return
	}
	ts, err := stats.ParseTime(in.Timestamp)
	if err != nil {
		model.NewBadRequestError(fmt.Sprintf("timestamp must use layout %q", model.DateTimeLayout)).WriteJSON(w)
		return
	}

	hit := Hit{App: in.App, URI: in.URI, IP: in.IP, VisitedAt: ts}
	if err := h.store.Save(r.Context(), &hit); err != nil {
		slog.Error("save hit failed", slog.String("uri", in.URI), slog.Any("error", err))
		model.NewInternalError("").WriteJSON(w)
		return
	}

	in.ID = hit.ID
	writeJSON(w, http.StatusCreated, in)
}

// GetStats handles GET /stats?start=&end=&uris=&unique=&app=.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := stats.ParseTime(q.Get("start"))
	if err != nil {
		model.NewBadRequestError("start is required in layout " + model.DateTimeLayout).WriteJSON(w)
		return
	}
	end, err := stats.ParseTime(q.Get("end"))
	if err != nil {
		model.NewBadRequestError("end is required in layout " + model.DateTimeLayout).WriteJSON(w)
		return
	}
	if end.Before(start) {
		model.NewBadRequestError("end must not be before start").WriteJSON(w)
		return
	}

	unique := false
	if raw := q.Get("unique"); raw != "" {
		unique, err = strconv.ParseBool(raw)
		if err != nil {
			model.NewBadRequestError("unique must be a boolean").WriteJSON(w)
			return
		}
	}

	var uris []string
	for _, v := range q["uris"] {
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				uris = append(uris, u)
			}
		}
	}

	rows, err := h.store.Stats(r.Context(), q.Get("app"), start, end, uris, unique)
	if err != nil {
		slog.Error("stats query failed", slog.Any("error", err))
		model.NewInternalError("").WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
