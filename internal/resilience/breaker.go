// Package resilience stops calling an upstream service that keeps failing.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the position of a breaker.
type State int

// Breaker states.
const (
	// Closed passes calls through.
	Closed State = iota
	// Open rejects calls until the cooldown has passed.
	Open
	// HalfOpen lets one probe call through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned for calls rejected by an open breaker.
var ErrOpen = eris.New("resilience: circuit open")

// Config controls a Breaker.
type Config struct {
	// Name identifies the guarded service in logs.
	Name string
	// Threshold is the number of consecutive failures that opens the
	// breaker. Default 3.
	Threshold int
	// Cooldown is how long the breaker stays open before a probe. Default 1m.
	Cooldown time.Duration
}

// Breaker is a consecutive-failure circuit breaker for one service. It is
// safe for concurrent use.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	rejected int
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Do runs fn unless the breaker is open. Cancellation of ctx is not counted
// as a failure of the service.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Do for functions that return a value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return v, err
	}
	b.record(err)
	return v, err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return HalfOpen
	}
	return b.state
}

// Rejected returns how many calls the breaker has refused.
func (b *Breaker) Rejected() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			b.rejected++
			return eris.Wrap(ErrOpen, b.cfg.Name)
		}
		b.transition(HalfOpen)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		if b.state != Closed {
			b.transition(Closed)
		}
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.cfg.Threshold {
		b.openedAt = b.now()
		if b.state != Open {
			b.transition(Open)
		}
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	zap.L().Info("resilience: breaker state change",
		zap.String("service", b.cfg.Name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
	b.state = to
}
