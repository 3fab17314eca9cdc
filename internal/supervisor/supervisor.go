// ABOUTME: Connection supervisor: connects, watches and reconnects the chat session
// ABOUTME: Reconnect attempts draw from one budget for the whole process lifetime
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harper/marcusbot/internal/chat"
	"github.com/harper/marcusbot/internal/retry"
	"github.com/harper/marcusbot/internal/util"
)

// ErrAttemptsExhausted is returned when the connect budget is spent.
var ErrAttemptsExhausted = errors.New("max connection attempts reached")

// DefaultRateLimitWait applies when a rate-limited connect gives no retry-after.
const DefaultRateLimitWait = 60 * time.Second

// Conn is a long-lived session with the chat platform
type Conn interface {
	// Open performs the handshake and returns once the session is ready.
	Open(ctx context.Context) error
	Close() error
	// Closed delivers an error when the open session drops.
	Closed() <-chan error
}

// Observer receives supervisor events (metrics)
type Observer interface {
	ObserveState(state State)
	ObserveConnectAttempt(kind string)
}

// Config bounds reconnection
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig returns 10 attempts with 30s..300s backoff
func DefaultConfig() Config {
	return Config{MaxAttempts: 10, BaseDelay: 30 * time.Second, MaxDelay: 300 * time.Second}
}

// Supervisor owns the session lifecycle
type Supervisor struct {
	conn   Conn
	cfg    Config
	logger *slog.Logger

	// Sleep is replaced in tests
	Sleep    retry.SleepFunc
	Observer Observer

	readyHooks []func(ctx context.Context)
	tasks      []Task

	state    atomic.Int32
	attempts atomic.Int32
	backoff  int
	started  sync.Once
	wg       sync.WaitGroup
}

// New creates a supervisor for conn
func New(conn Conn, cfg Config, logger *slog.Logger) *Supervisor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	s := &Supervisor{conn: conn, cfg: cfg, logger: logger, Sleep: retry.DefaultSleep}
	s.state.Store(int32(StateConnecting))
	return s
}

// OnReady registers a hook run every time the session becomes ready
func (s *Supervisor) OnReady(hook func(ctx context.Context)) {
	s.readyHooks = append(s.readyHooks, hook)
}

// AddTask registers a background task started once, on the first ready
func (s *Supervisor) AddTask(t Task) {
	s.tasks = append(s.tasks, t)
}

// State returns the current state; safe for concurrent use
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Attempts returns how many connect attempts have been made; safe for
// concurrent use
func (s *Supervisor) Attempts() int {
	return int(s.attempts.Load())
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	if s.Observer != nil {
		s.Observer.ObserveState(st)
	}
}

// Run connects and keeps the session alive until ctx is cancelled (nil)
// or the attempt budget is exhausted (ErrAttemptsExhausted).
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.wg.Wait()

	for {
		if ctx.Err() != nil {
			s.setState(StateTerminated)
			return nil
		}

		s.setState(StateConnecting)
		attempt := int(s.attempts.Add(1))
		s.logger.Info("connecting to chat platform", "attempt", attempt, "max_attempts", s.cfg.MaxAttempts)

		err := s.conn.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateTerminated)
				return nil
			}
			kind := classify(err)
			if s.Observer != nil {
				s.Observer.ObserveConnectAttempt(kind.String())
			}
			if attempt >= s.cfg.MaxAttempts {
				s.setState(StateTerminated)
				s.logger.Error("max connection attempts reached", "attempts", attempt, "kind", kind.String(), "error", err)
				return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
			}

			delay := s.delayFor(kind, err)
			s.logger.Warn("connection attempt failed",
				"kind", kind.String(),
				"error", err,
				"delay", delay,
				"attempt", attempt,
				"max_attempts", s.cfg.MaxAttempts,
			)
			s.setState(StateReconnecting)
			if err := s.Sleep(ctx, delay); err != nil {
				s.setState(StateTerminated)
				return nil
			}
			continue
		}

		if s.Observer != nil {
			s.Observer.ObserveConnectAttempt("ok")
		}
		s.backoff = 0
		s.setState(StateConnected)
		s.logger.Info("connected to chat platform", "attempt", attempt)
		s.ready(ctx)

		closed := s.conn.Closed()
		select {
		case <-ctx.Done():
			if err := s.conn.Close(); err != nil {
				s.logger.Warn("error closing session", "error", err)
			}
			s.setState(StateTerminated)
			return nil
		case err := <-closed:
			s.setState(StateDisconnected)
			s.logger.Warn("chat session disconnected, reconnecting", "error", err)
			if cerr := s.conn.Close(); cerr != nil {
				s.logger.Debug("error closing dropped session", "error", cerr)
			}
			if attempt >= s.cfg.MaxAttempts {
				s.setState(StateTerminated)
				return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
			}
			s.setState(StateReconnecting)
		}
	}
}

func (s *Supervisor) ready(ctx context.Context) {
	for _, hook := range s.readyHooks {
		hook(ctx)
	}
	s.started.Do(func() {
		for _, t := range s.tasks {
			s.wg.Add(1)
			go func(t Task) {
				defer s.wg.Done()
				runIsolated(ctx, t, s.logger, s.Sleep)
			}(t)
		}
	})
}

// delayFor returns the wait after a failed attempt. Rate limits honour the
// server's retry-after; everything else grows the shared backoff.
func (s *Supervisor) delayFor(kind failureKind, err error) time.Duration {
	if kind == failureRateLimited {
		if d, ok := retry.RetryAfterOf(err); ok {
			return d
		}
		return DefaultRateLimitWait
	}
	s.backoff++
	return util.CalculateBackoff(s.cfg.BaseDelay, s.cfg.MaxDelay, s.backoff)
}

func classify(err error) failureKind {
	var closeErr *websocket.CloseError
	switch {
	case errors.As(err, &closeErr),
		errors.Is(err, chat.ErrConnectionClosed),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, websocket.ErrCloseSent):
		return failureClosed
	case retry.ClassOf(err) == retry.RateLimited:
		return failureRateLimited
	case retry.StatusOf(err) != 0:
		return failureHTTP
	case retry.ClassOf(err) == retry.Transient:
		return failureNetwork
	default:
		return failureUnknown
	}
}
