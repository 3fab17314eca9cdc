// ABOUTME: Shared fakes for retry tests
// ABOUTME: Records requested waits instead of sleeping
package retry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type observerRecorder struct {
	mu        sync.Mutex
	retries   []Class
	exhausted []Class
}

func (o *observerRecorder) ObserveRetry(_ string, class Class, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, class)
}

func (o *observerRecorder) ObserveExhausted(_ string, class Class) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exhausted = append(o.exhausted, class)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scripted returns an operation that yields errs in order, then succeeds with result.
func scripted(calls *int, result string, errs ...error) Operation[string] {
	return func(ctx context.Context) (string, error) {
		i := *calls
		*calls++
		if i < len(errs) {
			return "", errs[i]
		}
		return result, nil
	}
}
