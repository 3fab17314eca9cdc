// ABOUTME: Backoff executor that retries an operation under a bounded policy
// ABOUTME: Every outbound network call in the bot is driven through Do or Run
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/harper/marcusbot/internal/util"
)

// Operation is a deferred unit of work. It is invoked once per attempt.
type Operation[T any] func(ctx context.Context) (T, error)

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// DefaultSleep waits on a timer and returns early with ctx.Err() on cancellation.
func DefaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Observer receives retry events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRetry(operation string, class Class, attempt int, delay time.Duration)
	ObserveExhausted(operation string, class Class)
}

// Policy bounds one retry session.
type Policy struct {
	// Name identifies the operation in diagnostics.
	Name string
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// RetryPermanent retries failures classified as permanent too.
	RetryPermanent bool
}

// DefaultPolicy returns 3 attempts starting at 10s and capped at 60s.
func DefaultPolicy(name string) Policy {
	return Policy{
		Name:           name,
		MaxRetries:     3,
		InitialDelay:   10 * time.Second,
		MaxDelay:       60 * time.Second,
		RetryPermanent: true,
	}
}

// Attempts returns the attempt budget, never less than one.
func (p Policy) Attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

// Delay returns the wait before the given 0-indexed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	return util.CalculateBackoff(p.InitialDelay, p.MaxDelay, attempt)
}

// Executor drives operations through a Policy.
type Executor struct {
	Logger   *slog.Logger
	Sleep    SleepFunc
	Observer Observer
}

// NewExecutor creates an executor that logs to logger.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{Logger: logger, Sleep: DefaultSleep}
}

func (e *Executor) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e == nil || e.Sleep == nil {
		return DefaultSleep(ctx, d)
	}
	return e.Sleep(ctx, d)
}

func (e *Executor) observer() Observer {
	if e == nil {
		return nil
	}
	return e.Observer
}

// Run executes op under p and returns its final error.
func (e *Executor) Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do invokes op at most p.Attempts() times. The first success is returned
// immediately. When the final attempt fails its error is returned unchanged.
// Rate-limited failures carrying a server delay wait that delay instead of
// the computed backoff.
func Do[T any](ctx context.Context, e *Executor, p Policy, op Operation[T]) (T, error) {
	var zero T
	log := e.logger()
	n := p.Attempts()

	for attempt := 0; attempt < n; attempt++ {
		v, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info("operation succeeded after retry", "operation", p.Name, "attempt", attempt+1)
			}
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}

		class := ClassOf(err)
		if attempt == n-1 || (class == Permanent && !p.RetryPermanent) {
			log.Error("operation failed",
				"operation", p.Name,
				"class", class.String(),
				"attempts", attempt+1,
				"error", err,
			)
			if o := e.observer(); o != nil {
				o.ObserveExhausted(p.Name, class)
			}
			return zero, err
		}

		delay := p.Delay(attempt + 1)
		if class == RateLimited {
			if ra, ok := RetryAfterOf(err); ok {
				delay = ra
			}
		}
		log.Warn("operation error, retrying",
			"operation", p.Name,
			"class", class.String(),
			"error", err,
			"delay", delay,
			"attempt", attempt+1,
			"max_attempts", n,
		)
		if o := e.observer(); o != nil {
			o.ObserveRetry(p.Name, class, attempt+1, delay)
		}
		if err := e.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, context.Canceled
}
