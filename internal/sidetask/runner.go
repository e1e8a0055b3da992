// Package sidetask runs best-effort work that follows an accepted request:
// scoring, mirroring and notification. A task runs detached from the request
// context with its own timeout, its failures are logged and counted but never
// propagated, and each collaborator sits behind a circuit breaker so an
// unavailable third party stops being called for a while.
package sidetask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Defaults used when a Config field is zero.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultBreakerTimeout = time.Minute
	DefaultMaxFailures    = 5
)

type Config struct {
	Timeout        time.Duration
	BreakerTimeout time.Duration
	MaxFailures    uint32
}

// Runner schedules side tasks. The zero value is not usable; call NewRunner.
type Runner struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]CircuitBreaker
	closed   bool

	wg       sync.WaitGroup
	outcomes metric.Int64Counter
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = DefaultBreakerTimeout
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}

	meter := otel.Meter("intake/sidetask")
	outcomes, err := meter.Int64Counter(
		"sidetask.outcomes",
		metric.WithDescription("Side task and collaborator call outcomes"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create side task counter: %w", err)
	}

	return &Runner{
		cfg:      cfg,
		breakers: make(map[string]CircuitBreaker),
		outcomes: outcomes,
	}, nil
}

// ErrClosed is returned by Go after Wait has started draining.
var ErrClosed = errors.New("side task runner closed")

// Go runs fn in the background. The context passed to fn is not derived from
// any request; it is cancelled only by the runner's timeout.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		slog.Warn("Side task dropped, runner closed", "task", name)
		return ErrClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
		defer cancel()

		start := time.Now()
		err := r.run(ctx, fn)
		r.record(ctx, name, err)

		if err != nil {
			slog.Error("Side task failed",
				"task", name,
				"duration", time.Since(start),
				"error", err,
			)
			return
		}
		slog.Debug("Side task completed", "task", name, "duration", time.Since(start))
	}()
	return nil
}

// run invokes fn, converting a panic into an error.
func (r *Runner) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}

// Call runs fn through the named collaborator's circuit breaker. While the
// breaker is open fn is not invoked and the returned error wraps
// gobreaker.ErrOpenState.
func (r *Runner) Call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	err := r.breaker(name).Execute(func() error { return fn(ctx) })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		slog.Warn("Collaborator call skipped, circuit open", "collaborator", name)
		r.outcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("task", name),
			attribute.String("outcome", "skipped"),
		))
	}
	return err
}

// BreakerState reports the current state of the named breaker.
func (r *Runner) BreakerState(name string) gobreaker.State {
	return r.breaker(name).State()
}

func (r *Runner) breaker(name string) CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(name, r.cfg.BreakerTimeout, r.cfg.MaxFailures)
		r.breakers[name] = cb
	}
	return cb
}

// Wait stops accepting new tasks and blocks until running tasks finish or
// ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for side tasks: %w", ctx.Err())
	}
}

func (r *Runner) record(ctx context.Context, name string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task", name),
		attribute.String("outcome", outcome),
	))
}
