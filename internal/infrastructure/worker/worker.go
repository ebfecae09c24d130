// Package worker runs the service's periodic background jobs.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Every runs job immediately and then on every tick until ctx is done.
// Job errors are logged and do not stop the loop.
func Every(ctx context.Context, interval time.Duration, logger zerolog.Logger, job Job) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("background job failed")
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}
