// ABOUTME: Tests for the connection supervisor loop and background tasks
// ABOUTME: Uses a scripted fake connection and a recording sleep function
package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/marcusbot/internal/chat"
	"github.com/harper/marcusbot/internal/retry"
)

type fakeConn struct {
	mu      sync.Mutex
	opens   int
	results []error
	closes  int
	closed  chan error
	onOpen  func(n int)
}

func newFakeConn(results ...error) *fakeConn {
	return &fakeConn{results: results, closed: make(chan error, 1)}
}

func (f *fakeConn) Open(_ context.Context) error {
	f.mu.Lock()
	f.opens++
	n := f.opens
	var err error
	if n <= len(f.results) {
		err = f.results[n-1]
	}
	hook := f.onOpen
	f.mu.Unlock()
	if err == nil && hook != nil {
		hook(n)
	}
	return err
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeConn) Closed() <-chan error { return f.closed }

type sleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleeps) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSupervisor(conn Conn, maxAttempts int) (*Supervisor, *sleeps) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = maxAttempts
	s := New(conn, cfg, quietLogger())
	rec := &sleeps{}
	s.Sleep = rec.sleep
	return s, rec
}

func TestRunExhaustsBudget(t *testing.T) {
	netErr := retry.NewTransient(errors.New("dial tcp: connection refused"))
	conn := newFakeConn(netErr, netErr, netErr)
	s, rec := newTestSupervisor(conn, 3)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, netErr)
	assert.Equal(t, 3, conn.opens)
	assert.Equal(t, StateTerminated, s.State())
	// No wait after the final attempt.
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, rec.recorded())
}

func TestRunBackoffSchedule(t *testing.T) {
	closeErr := &websocket.CloseError{Code: 4000, Text: "unknown error"}
	results := make([]error, 6)
	for i := range results {
		results[i] = closeErr
	}
	conn := newFakeConn(results...)
	s, rec := newTestSupervisor(conn, 6)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, []time.Duration{
		30 * time.Second,
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		300 * time.Second,
	}, rec.recorded())
}

func TestRunRateLimitedWaits(t *testing.T) {
	conn := newFakeConn(
		retry.NewRateLimited(errors.New("429"), 7*time.Second),
		retry.NewRateLimited(errors.New("429"), 0),
		retry.NewRateLimited(errors.New("429"), 0),
	)
	s, rec := newTestSupervisor(conn, 3)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, []time.Duration{7 * time.Second, DefaultRateLimitWait}, rec.recorded())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := newFakeConn()
	conn.onOpen = func(int) { cancel() }
	s, _ := newTestSupervisor(conn, 10)

	err := s.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, StateTerminated, s.State())
	assert.Equal(t, 1, conn.closes)
}

func TestRunCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := newFakeConn(chat.ErrConnectionClosed)
	s, _ := newTestSupervisor(conn, 10)
	s.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	assert.NoError(t, s.Run(ctx))
	assert.Equal(t, 1, conn.opens)
}

func TestReconnectKeepsBudgetAndRunsTaskOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newFakeConn()
	var readies atomic.Int32
	conn.onOpen = func(n int) {
		if n < 3 {
			// drop the session right after it becomes ready
			conn.closed <- chat.ErrConnectionClosed
			return
		}
		cancel()
	}

	s, rec := newTestSupervisor(conn, 10)
	s.OnReady(func(context.Context) { readies.Add(1) })

	task := &countingTask{}
	s.AddTask(task)

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 3, conn.opens)
	assert.Equal(t, 3, s.Attempts())
	assert.Equal(t, int32(3), readies.Load())
	assert.Equal(t, int32(1), task.starts.Load())
	assert.Empty(t, rec.recorded())
}

func TestDisconnectAfterBudgetTerminates(t *testing.T) {
	conn := newFakeConn()
	conn.onOpen = func(int) { conn.closed <- chat.ErrConnectionClosed }
	s, _ := newTestSupervisor(conn, 2)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 2, conn.opens)
}

func TestBackoffResetsAfterConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refused := retry.NewTransient(errors.New("refused"))
	conn := newFakeConn(refused, refused, nil, refused, nil)
	conn.onOpen = func(n int) {
		if n == 3 {
			conn.closed <- chat.ErrConnectionClosed
			return
		}
		cancel()
	}
	s, rec := newTestSupervisor(conn, 10)

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second, 30 * time.Second}, rec.recorded())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failureKind
	}{
		{"close error", &websocket.CloseError{Code: 1006}, failureClosed},
		{"connection closed", chat.ErrConnectionClosed, failureClosed},
		{"rate limited", retry.NewRateLimited(errors.New("slow down"), 0), failureRateLimited},
		{"http", retry.FromStatus(502, 0, errors.New("bad gateway")), failureHTTP},
		{"network", retry.NewTransient(errors.New("reset")), failureNetwork},
		{"unknown", errors.New("boom"), failureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

type countingTask struct {
	starts atomic.Int32
}

func (c *countingTask) Name() string { return "counting" }

func (c *countingTask) Run(ctx context.Context) error {
	c.starts.Add(1)
	<-ctx.Done()
	return nil
}

type panickyTask struct {
	runs atomic.Int32
}

func (p *panickyTask) Name() string { return "panicky" }

func (p *panickyTask) Run(ctx context.Context) error {
	if p.runs.Add(1) == 1 {
		panic("boom")
	}
	return nil
}

func TestRunIsolatedRestartsAfterPanic(t *testing.T) {
	task := &panickyTask{}
	rec := &sleeps{}

	runIsolated(context.Background(), task, quietLogger(), rec.sleep)

	assert.Equal(t, int32(2), task.runs.Load())
	assert.Equal(t, []time.Duration{RestartDelay}, rec.recorded())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestAttemptsReadableWhileRunning(t *testing.T) {
	conn := newFakeConn(errors.New("dial tcp: connection refused"), errors.New("dial tcp: connection refused"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.onOpen = func(int) { cancel() }

	s, _ := newTestSupervisor(conn, 10)

	done := make(chan struct{})
	var seen atomic.Int32
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			seen.Store(int32(s.Attempts()))
		}
	}()

	require.NoError(t, s.Run(ctx))
	<-done
	assert.Equal(t, 3, s.Attempts())
	assert.LessOrEqual(t, seen.Load(), int32(3))
}
