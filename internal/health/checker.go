// ABOUTME: Periodic outbound connectivity probe against a known-good URL
// ABOUTME: Results are logged and exported; they never drive reconnection
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/harper/marcusbot/internal/fetch"
	"github.com/harper/marcusbot/internal/retry"
)

const (
	DefaultURL      = "https://httpbin.org/status/200"
	DefaultInterval = 5 * time.Minute
	DefaultTimeout  = 10 * time.Second
)

// Status is the outcome of the latest probe
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOK      Status = "ok"
	StatusFailing Status = "failing"
)

// Observer receives probe outcomes (the health_up gauge)
type Observer interface {
	ObserveHealth(up bool)
}

// Prober issues the probe request
type Prober interface {
	Status(ctx context.Context, url string) (int, error)
}

// Config for the checker
type Config struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration
}

// Checker probes URL every Interval
type Checker struct {
	cfg      Config
	prober   Prober
	logger   *slog.Logger
	Observer Observer

	// Wait is replaced in tests
	Wait retry.SleepFunc

	last atomic.Value
}

// NewChecker creates a checker; zero config fields take the defaults
func NewChecker(cfg Config, prober Prober, logger *slog.Logger) *Checker {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if prober == nil {
		prober = fetch.New(cfg.Timeout)
	}
	c := &Checker{cfg: cfg, prober: prober, logger: logger, Wait: retry.DefaultSleep}
	c.last.Store(StatusUnknown)
	return c
}

// Name identifies the checker as a supervised task
func (c *Checker) Name() string { return "health-check" }

// Status returns the latest probe outcome
func (c *Checker) Status() Status {
	return c.last.Load().(Status)
}

// Run probes immediately, then once per interval until ctx is done.
func (c *Checker) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		c.Check(ctx)
		if err := c.Wait(ctx, c.cfg.Interval); err != nil {
			return nil
		}
	}
	return nil
}

// Check performs a single probe
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	code, err := c.prober.Status(ctx, c.cfg.URL)
	status := StatusFailing
	switch {
	case err != nil:
		c.logger.Warn("health check failed", "url", c.cfg.URL, "error", err)
	case code == http.StatusOK:
		status = StatusOK
		c.logger.Info("health check ok", "url", c.cfg.URL)
	default:
		c.logger.Warn("health check returned status", "url", c.cfg.URL, "status", code)
	}

	c.last.Store(status)
	if c.Observer != nil {
		c.Observer.ObserveHealth(status == StatusOK)
	}
	return status
}
