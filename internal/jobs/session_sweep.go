// Package jobs runs periodic background maintenance.
package jobs

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// Sweeper marks expired sessions.  *service.AuthService is one.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// StartSessionSweepJob marks ACTIVE sessions past expiry as EXPIRED every
// interval until ctx is cancelled.  A non-positive interval disables it.
func StartSessionSweepJob(ctx context.Context, interval time.Duration, sweeper Sweeper, logger echo.Logger) {
	if interval <= 0 {
		logger.Info("session sweep job disabled")
		return
	}
	timeout := interval / 2
	if timeout > 30*time.Second {
		timeout = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepOnce(ctx, timeout, sweeper, logger)
			}
		}
	}()
}

func sweepOnce(ctx context.Context, timeout time.Duration, sweeper Sweeper, logger echo.Logger) int64 {
	tickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	n, err := sweeper.SweepExpired(tickCtx)
	if err != nil {
		logger.Errorf("session sweep job error: %v", err)
		return 0
	}
	if n > 0 {
		logger.Infof("session sweep job expired %d sessions", n)
	}
	return n
}
