// Package stats is the client side of the visit-counting service contract:
// recording endpoint hits and asking for per-URI hit counts.
package stats

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// EndpointHit is one recorded visit, as sent to POST /hit.
type EndpointHit struct {
	ID        int64  `json:"id,omitempty"`
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// ViewStats is one row of GET /stats.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// Query parameterises GET /stats. An empty URIs list asks for every URI
// seen in the window.
type Query struct {
	Start  time.Time
	End    time.Time
	URIs   []string
	Unique bool

	// App restricts the counts to hits recorded by one application.
	App string
}

// FormatTime renders t in the wire layout.
func FormatTime(t time.Time) string {
	return t.Format(model.DateTimeLayout)
}

// ParseTime parses a wire timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(model.DateTimeLayout, s, time.UTC)
}

const eventsPrefix = "/events/"

// EventURI is the resource identifier visits to an event are recorded under.
func EventURI(id int64) string {
	return eventsPrefix + strconv.FormatInt(id, 10)
}

// EventIDFromURI extracts the event id from the suffix after the last slash.
func EventIDFromURI(uri string) (int64, error) {
	i := strings.LastIndexByte(uri, '/')
	id, err := strconv.ParseInt(uri[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("uri %q does not end in an event id", uri)
	}
	return id, nil
}

// HitsByEvent folds stats rows into a map keyed by event id. Rows whose URI
// does not name an event are ignored; rows for the same event are summed.
func HitsByEvent(rows []ViewStats) map[int64]int64 {
	out := make(map[int64]int64, len(rows))
	for _, r := range rows {
		id, err := EventIDFromURI(r.URI)
		if err != nil {
			continue
		}
		out[id] += r.Hits
	}
	return out
}
