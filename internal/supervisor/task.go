// ABOUTME: Supervised background tasks with a crash-isolation boundary
// ABOUTME: A panicking task is logged and restarted; the main loop is never affected
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harper/marcusbot/internal/retry"
)

// RestartDelay is the pause before a crashed task is restarted
const RestartDelay = 30 * time.Second

// Task is a long-running background job that returns when ctx is done
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

func runIsolated(ctx context.Context, t Task, logger *slog.Logger, sleep retry.SleepFunc) {
	for {
		err := runOnce(ctx, t)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			logger.Info("background task finished", "task", t.Name())
			return
		}
		logger.Error("background task failed, restarting", "task", t.Name(), "error", err, "delay", RestartDelay)
		if sleep(ctx, RestartDelay) != nil {
			return
		}
	}
}

func runOnce(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", t.Name(), r)
		}
	}()
	return t.Run(ctx)
}
