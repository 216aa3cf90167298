package stats

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Circuit breaker errors
var (
	ErrTooManyRequests    = errors.New("too many requests")
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// BreakerState represents the current state of the circuit breaker
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("unknown state: %d", s)
	}
}

// BreakerSettings holds the settings for the circuit breaker. Interval is
// the closed-state window after which counts are cleared; zero keeps them
// until the state changes.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	ReadyToTrip func(counts Counts) bool
	Now         func() time.Time
}

// Counts holds the counts of requests and their results within the current
// generation.
type Counts struct {
	Requests             uint32
	Failures             uint32
	Successes            uint32
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
}

func (c *Counts) onSuccess() {
	c.Successes++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) onFailure() {
	c.Failures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Breaker stops calling a failing collaborator for Timeout after it trips,
// then lets up to MaxRequests probes through before closing again.
type Breaker struct {
	name        string
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	readyToTrip func(counts Counts) bool
	now         func() time.Time

	mu         sync.Mutex
	state      BreakerState
	generation uint64
	counts     Counts
	expiry     time.Time
}

// DefaultBreakerSettings trips after 3 consecutive failures, or once a
// 60s window holds at least 3 requests with 60% of them failed.
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			failureRatio := float64(counts.Failures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
}

// NewBreaker creates a new circuit breaker with the given settings
func NewBreaker(settings BreakerSettings) *Breaker {
	b := &Breaker{
		name:        settings.Name,
		maxRequests: settings.MaxRequests,
		interval:    settings.Interval,
		timeout:     settings.Timeout,
		readyToTrip: settings.ReadyToTrip,
		now:         settings.Now,
		state:       StateClosed,
	}
	if b.maxRequests == 0 {
		b.maxRequests = 1
	}
	if b.timeout == 0 {
		b.timeout = 30 * time.Second
	}
	if b.readyToTrip == nil {
		b.readyToTrip = DefaultBreakerSettings(settings.Name).ReadyToTrip
	}
	if b.now == nil {
		b.now = time.Now
	}
	b.newGeneration(b.now())
	return b
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().After(b.expiry) {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	generation, err := b.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.afterRequest(generation, false)
			panic(e)
		}
	}()

	err = fn()
	b.afterRequest(generation, err == nil)
	return err
}

func (b *Breaker) beforeRequest() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && now.After(b.expiry) {
			b.newGeneration(now)
		}
		b.counts.Requests++
		return b.generation, nil
	case StateOpen:
		if now.After(b.expiry) {
			b.setState(StateHalfOpen, now)
			b.counts.Requests++
			return b.generation, nil
		}
		return 0, ErrCircuitBreakerOpen
	case StateHalfOpen:
		if b.counts.Requests >= b.maxRequests {
			return 0, ErrTooManyRequests
		}
		b.counts.Requests++
		return b.generation, nil
	default:
		return 0, errors.New("invalid circuit breaker state")
	}
}

func (b *Breaker) afterRequest(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.generation != generation {
		return
	}
	now := b.now()
	if success {
		b.onSuccess(now)
	} else {
		b.onFailure(now)
	}
}

func (b *Breaker) onSuccess(now time.Time) {
	switch b.state {
	case StateClosed:
		b.counts.onSuccess()
	case StateHalfOpen:
		b.counts.onSuccess()
		if b.counts.ConsecutiveSuccesses >= b.maxRequests {
			b.setState(StateClosed, now)
		}
	}
}

func (b *Breaker) onFailure(now time.Time) {
	switch b.state {
	case StateClosed:
		b.counts.onFailure()
		if b.readyToTrip(b.counts) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

func (b *Breaker) setState(state BreakerState, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.newGeneration(now)
	slog.Warn("circuit breaker state changed",
		slog.String("breaker", b.name),
		slog.String("from", prev.String()),
		slog.String("to", state.String()),
	)
}

// newGeneration clears the counts and sets the expiry of the current state:
// the closed-state window, or the open-state timeout.
func (b *Breaker) newGeneration(now time.Time) {
	b.generation++
	b.counts = Counts{}
	switch b.state {
	case StateClosed:
		b.expiry = time.Time{}
		if b.interval > 0 {
			b.expiry = now.Add(b.interval)
		}
	case StateOpen:
		b.expiry = now.Add(b.timeout)
	default:
		b.expiry = time.Time{}
	}
}

// IsBreakerError reports whether err came from the breaker rather than the
// protected call.
func IsBreakerError(err error) bool {
	return errors.Is(err, ErrCircuitBreakerOpen) || errors.Is(err, ErrTooManyRequests)
}
