// ABOUTME: Tests for the backoff executor
// ABOUTME: Verifies attempt bounds, delay schedule, classification and cancellation
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(rec *sleepRecorder) *Executor {
	return &Executor{Logger: discardLogger(), Sleep: rec.Sleep}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	got, err := Do(context.Background(), newTestExecutor(rec), DefaultPolicy("first"), scripted(&calls, "ok"))

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Delays())
}

func TestDo_TransientThenSuccess(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	transient := NewTransient(errors.New("connection reset"))
	p := Policy{Name: "scenario A", MaxRetries: 3, InitialDelay: 5 * time.Second, MaxDelay: 30 * time.Second}

	got, err := Do(context.Background(), newTestExecutor(rec), p, scripted(&calls, "done", transient, transient))

	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, rec.Delays())
}

func TestDo_AllPermanentFailuresReturnLastError(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	errs := []error{
		NewPermanent(errors.New("bad schema 1")),
		NewPermanent(errors.New("bad schema 2")),
		NewPermanent(errors.New("bad schema 3")),
		NewPermanent(errors.New("never reached")),
	}
	p := Policy{Name: "scenario C", MaxRetries: 3, InitialDelay: time.Second, MaxDelay: time.Minute, RetryPermanent: true}

	_, err := Do(context.Background(), newTestExecutor(rec), p, scripted(&calls, "", errs...))

	require.Error(t, err)
	assert.Same(t, errs[2], err)
	assert.Equal(t, Permanent, ClassOf(err))
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.Delays(), 2)
}

func TestDo_PermanentNotRetriedWhenDisabled(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	perm := NewPermanent(errors.New("invalid request"))
	p := DefaultPolicy("strict")
	p.RetryPermanent = false

	_, err := Do(context.Background(), newTestExecutor(rec), p, scripted(&calls, "", perm, perm, perm))

	assert.ErrorIs(t, err, perm)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Delays())
}

func TestDo_TransientRetriedWhenPermanentDisabled(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	p := DefaultPolicy("strict")
	p.RetryPermanent = false

	_, err := Do(context.Background(), newTestExecutor(rec), p,
		scripted(&calls, "ok", NewTransient(errors.New("timeout"))))

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ScheduleRespectsCap(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	transient := NewTransient(errors.New("timeout"))
	p := Policy{Name: "cap", MaxRetries: 5, InitialDelay: 10 * time.Second, MaxDelay: 60 * time.Second}

	_, err := Do(context.Background(), newTestExecutor(rec), p,
		scripted(&calls, "", transient, transient, transient, transient, transient))

	require.Error(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second, 60 * time.Second}, rec.Delays())
}

func TestDo_RateLimitedUsesServerDelay(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	limited := NewRateLimited(errors.New("slow down"), 42*time.Second)
	unspecified := NewRateLimited(errors.New("slow down"), 0)

	_, err := Do(context.Background(), newTestExecutor(rec), DefaultPolicy("limited"),
		scripted(&calls, "ok", limited, unspecified))

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{42 * time.Second, 20 * time.Second}, rec.Delays())
}

func TestDo_ZeroRetriesMeansOneAttempt(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	p := Policy{Name: "once", MaxRetries: 0}

	_, err := Do(context.Background(), newTestExecutor(rec), p,
		scripted(&calls, "", NewTransient(errors.New("x"))))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	exec := &Executor{Logger: discardLogger(), Sleep: func(ctx context.Context, d time.Duration) error {
		cancel()
		return DefaultSleep(ctx, d)
	}}

	_, err := Do(ctx, exec, DefaultPolicy("cancel"), scripted(&calls, "", NewTransient(errors.New("x")), nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &sleepRecorder{}
	calls := 0
	op := func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, ctx.Err()
	}

	_, err := Do(ctx, newTestExecutor(rec), DefaultPolicy("ctx"), op)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Delays())
}

func TestDo_NotifiesObserver(t *testing.T) {
	rec := &sleepRecorder{}
	obs := &observerRecorder{}
	exec := newTestExecutor(rec)
	exec.Observer = obs
	calls := 0
	transient := NewTransient(errors.New("x"))

	_, err := Do(context.Background(), exec, DefaultPolicy("observed"),
		scripted(&calls, "", transient, transient, transient))

	require.Error(t, err)
	assert.Equal(t, []Class{Transient, Transient}, obs.retries)
	assert.Equal(t, []Class{Transient}, obs.exhausted)
}

func TestRun(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	err := newTestExecutor(rec).Run(context.Background(), DefaultPolicy("run"), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return NewTransient(errors.New("x"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{10 * time.Second}, rec.Delays())
}

func TestDefaultSleep(t *testing.T) {
	require.NoError(t, DefaultSleep(context.Background(), 0))
	require.NoError(t, DefaultSleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, DefaultSleep(ctx, time.Hour), context.Canceled)
}
