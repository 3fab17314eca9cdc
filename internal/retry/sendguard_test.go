// ABOUTME: Tests for the rate-limit-aware send guard
// ABOUTME: Verifies fixed cooldown on 429, backoff on network errors and exhaustion
package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(rec *sleepRecorder) *SendGuard {
	g := NewSendGuard(discardLogger())
	g.Sleep = rec.Sleep
	return g
}

func TestSend_Success(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	got, err := Send(context.Background(), newTestGuard(rec), "send", scripted(&calls, "msg-1"))

	require.NoError(t, err)
	assert.Equal(t, "msg-1", got)
	assert.Equal(t, 1, calls)
}

func TestSend_RateLimitedWaitsFixedCooldown(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	limited := NewRateLimited(errors.New("429 too many requests"), 0)

	got, err := Send(context.Background(), newTestGuard(rec), "send", scripted(&calls, "sent", limited))

	require.NoError(t, err)
	assert.Equal(t, "sent", got)
	assert.Equal(t, []time.Duration{900 * time.Second}, rec.Delays())
}

func TestSend_RateLimitedIgnoresServerDelayAndBackoff(t *testing.T) {
	rec := &sleepRecorder{}
	g := newTestGuard(rec)
	g.BaseDelay = time.Second
	g.MaxDelay = 2 * time.Second
	calls := 0
	limited := NewRateLimited(errors.New("429"), 3*time.Second)

	_, err := Send(context.Background(), g, "send", scripted(&calls, "ok", limited, limited, limited))

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{15 * time.Minute, 15 * time.Minute, 15 * time.Minute}, rec.Delays())
}

func TestSend_TransientBackoff(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	transient := NewTransient(errors.New("connection reset"))

	_, err := Send(context.Background(), newTestGuard(rec), "send",
		scripted(&calls, "ok", transient, transient, transient, transient))

	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second, 240 * time.Second}, rec.Delays())
}

func TestSend_PermanentPropagatesImmediately(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	forbidden := FromStatus(http.StatusForbidden, 0, errors.New("missing access"))

	_, err := Send(context.Background(), newTestGuard(rec), "send", scripted(&calls, "", forbidden))

	assert.Same(t, forbidden, err)
	assert.NotErrorIs(t, err, ErrMaxAttempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Delays())
}

func TestSend_ExhaustionIsDistinguishable(t *testing.T) {
	rec := &sleepRecorder{}
	obs := &observerRecorder{}
	g := newTestGuard(rec)
	g.Observer = obs
	calls := 0
	transient := NewTransient(errors.New("timeout"))

	_, err := Send(context.Background(), g, "send welcome",
		scripted(&calls, "", transient, transient, transient, transient, transient, transient))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.ErrorIs(t, err, transient)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.Equal(t, "send welcome", exhausted.Operation)
	assert.Equal(t, 5, calls)
	assert.Len(t, rec.Delays(), 4)
	assert.Equal(t, []Class{Transient}, obs.exhausted)
}

func TestSend_LastAttemptRateLimitedDoesNotWait(t *testing.T) {
	rec := &sleepRecorder{}
	g := newTestGuard(rec)
	g.MaxAttempts = 2
	calls := 0
	limited := NewRateLimited(errors.New("429"), 0)

	_, err := Send(context.Background(), g, "send", scripted(&calls, "", limited, limited))

	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.Equal(t, []time.Duration{15 * time.Minute}, rec.Delays())
}

func TestSend_CancelDuringCooldown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewSendGuard(discardLogger())
	g.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return DefaultSleep(ctx, d)
	}
	calls := 0

	_, err := Send(ctx, g, "send", scripted(&calls, "", NewRateLimited(errors.New("429"), 0), nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
