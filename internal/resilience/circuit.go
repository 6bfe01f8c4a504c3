// Package resilience provides retry and circuit breaking for collaborator calls.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen lets one trial call through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls circuit breaker behavior.
type BreakerConfig struct {
	// Name labels log lines on state changes.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a trial call is allowed.
	ResetTimeout time.Duration

	// ShouldTrip decides whether an error counts as a failure. Nil counts every error.
	ShouldTrip func(err error) bool
}

// DefaultBreakerConfig returns the breaker settings for model calls.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "anthropic",
		FailureThreshold: 3,
		ResetTimeout:     15 * time.Minute,
	}
}

// Breaker stops calling a collaborator after a run of consecutive failures.
// While open, rows fail fast instead of each waiting on a dead dependency.
type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time

	now func() time.Time
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	d := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = d.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = d.ResetTimeout
	}
	if cfg.Name == "" {
		cfg.Name = d.Name
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := ExecuteVal(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteVal runs fn through the breaker and returns its value. A nil breaker
// calls fn directly.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if b == nil {
		return fn(ctx)
	}
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the current state, reporting half-open once an open circuit's
// reset timeout has elapsed.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitOpen {
		return nil
	}
	if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		b.transition(CircuitHalfOpen)
		return nil
	}
	return ErrCircuitOpen
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trips := err != nil
	if trips && b.cfg.ShouldTrip != nil {
		trips = b.cfg.ShouldTrip(err)
	}

	if !trips {
		b.failures = 0
		if b.state == CircuitHalfOpen {
			b.transition(CircuitClosed)
		}
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == CircuitHalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != CircuitOpen {
			b.transition(CircuitOpen)
		}
	}
}

func (b *Breaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	zap.L().Warn("resilience: circuit state change",
		zap.String("breaker", b.cfg.Name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
}
