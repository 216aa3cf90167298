package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventhub/internal/config"
)

// StatusError is returned when the stats service answers with a non-2xx code.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stats %s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

// Client talks to the stats service over HTTP/JSON.
type Client struct {
	baseURL string
	app     string
	http    *http.Client
	breaker *Breaker
}

// NewClient builds a client from configuration. Zero breaker durations
// keep the defaults.
func NewClient(cfg config.StatsConfig) *Client {
	settings := DefaultBreakerSettings("stats")
	if cfg.BreakerTimeout > 0 {
		settings.Timeout = cfg.BreakerTimeout
	}
	if cfg.BreakerInterval > 0 {
		settings.Interval = cfg.BreakerInterval
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		app:     cfg.AppName,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: NewBreaker(settings),
	}
}

// Hit records one visit. An empty App is filled with the client's app name.
func (c *Client) Hit(ctx context.Context, hit EndpointHit) error {
	if hit.App == "" {
		hit.App = c.app
	}
	body, err := json.Marshal(hit)
	if err != nil {
		return fmt.Errorf("encode hit: %w", err)
	}

	return c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build hit request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		c.setRequestID(ctx, req)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("post hit: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return statusError("hit", resp)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	})
}

// Stats returns hit counts per URI for the window in q.
func (c *Client) Stats(ctx context.Context, q Query) ([]ViewStats, error) {
	params := url.Values{}
	params.Set("start", FormatTime(q.Start))
	params.Set("end", FormatTime(q.End))
	for _, u := range q.URIs {
		params.Add("uris", u)
	}
	params.Set("unique", strconv.FormatBool(q.Unique))
	if q.App != "" {
		params.Set("app", q.App)
	}

	var out []ViewStats
	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("build stats request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		c.setRequestID(ctx, req)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return statusError("stats", resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) setRequestID(ctx context.Context, req *http.Request) {
	id := middleware.GetReqID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set(middleware.RequestIDHeader, id)
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
