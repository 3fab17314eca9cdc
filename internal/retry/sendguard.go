// ABOUTME: Rate-limit-aware guard for the send-message-to-channel path
// ABOUTME: Fixed cooldown on 429, exponential backoff on network errors, no retry otherwise
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harper/marcusbot/internal/util"
)

// ErrMaxAttempts is matched by the error returned when a send exhausts its budget.
var ErrMaxAttempts = errors.New("max send attempts reached")

// ExhaustedError reports a send that failed on every attempt. It matches
// ErrMaxAttempts and unwraps to the last platform error.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: max attempts (%d) reached: %v", e.Operation, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrMaxAttempts, e.Last}
}

// SendGuard retries chat-platform sends.
type SendGuard struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Cooldown is the fixed wait after a rate-limited send.
	Cooldown time.Duration

	Logger   *slog.Logger
	Sleep    SleepFunc
	Observer Observer
}

// NewSendGuard returns a guard with 5 attempts, 30s..300s backoff and a 15 minute cooldown.
func NewSendGuard(logger *slog.Logger) *SendGuard {
	return &SendGuard{
		MaxAttempts: 5,
		BaseDelay:   30 * time.Second,
		MaxDelay:    300 * time.Second,
		Cooldown:    15 * time.Minute,
		Logger:      logger,
		Sleep:       DefaultSleep,
	}
}

func (g *SendGuard) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func (g *SendGuard) sleep(ctx context.Context, d time.Duration) error {
	if g.Sleep == nil {
		return DefaultSleep(ctx, d)
	}
	return g.Sleep(ctx, d)
}

// Send runs send under g. Permanent failures are returned as is;
// exhausting the budget returns an *ExhaustedError.
func Send[T any](ctx context.Context, g *SendGuard, name string, send Operation[T]) (T, error) {
	var zero T
	log := g.logger()
	n := g.MaxAttempts
	if n < 1 {
		n = 1
	}

	var last error
	var lastClass Class
	for attempt := 0; attempt < n; attempt++ {
		v, err := send(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}

		last = err
		lastClass = ClassOf(err)
		if lastClass == Permanent {
			log.Error("send failed", "operation", name, "status", StatusOf(err), "error", err)
			return zero, err
		}
		if attempt == n-1 {
			break
		}

		var delay time.Duration
		if lastClass == RateLimited {
			delay = g.Cooldown
			log.Warn("rate limited, cooling down", "operation", name, "delay", delay, "attempt", attempt+1, "max_attempts", n)
		} else {
			delay = util.CalculateBackoff(g.BaseDelay, g.MaxDelay, attempt+1)
			log.Warn("network error, retrying", "operation", name, "error", err, "delay", delay, "attempt", attempt+1, "max_attempts", n)
		}
		if g.Observer != nil {
			g.Observer.ObserveRetry(name, lastClass, attempt+1, delay)
		}
		if err := g.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	log.Error("send abandoned", "operation", name, "attempts", n, "error", last)
	if g.Observer != nil {
		g.Observer.ObserveExhausted(name, lastClass)
	}
	return zero, &ExhaustedError{Operation: name, Attempts: n, Last: last}
}
