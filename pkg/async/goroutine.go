package async

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/platinummonkey/depot/pkg/observability"
)

// SafeGo runs fn in a goroutine with panic recovery and error logging.
// A positive timeout bounds fn's context. The returned channel is closed
// once fn has returned or panicked.
//
// Use this instead of bare `go func()` for long-running background tasks.
//
// Example:
//
//	done := async.SafeGo(ctx, logger, 0, "file watcher", watcher.Run)
//	<-done
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	logger = logger.WithField("task", taskName)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ctx, cancel := parentCtx, context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parentCtx, timeout)
		}
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("stack", string(debug.Stack())).Errorf("Panic in background task: %v", r)
			}
		}()

		err := fn(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			logger.Debug("Background task cancelled")
		default:
			logger.WithError(err).Error("Background task failed")
		}
	}()

	return done
}
