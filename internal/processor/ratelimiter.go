package processor

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/yaroing/feedback-platform/internal/telemetry"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

const defaultWriteRPS = 50

// RateLimiter throttles feedback write-backs.
type RateLimiter struct {
	limiter   *rate.Limiter
	logger    infralogger.Logger
	telemetry *telemetry.Provider
}

// NewRateLimiter creates a new rate limiter
// rps: writes per second
// burst: maximum burst size
func NewRateLimiter(rps, burst int, logger infralogger.Logger, tp *telemetry.Provider) *RateLimiter {
	if rps <= 0 {
		rps = defaultWriteRPS
	}
	if burst <= 0 {
		burst = rps
	}
	if logger == nil {
		logger = infralogger.NewNop()
	}

	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		logger:    logger,
		telemetry: tp,
	}
}

// Wait blocks until a write is allowed. Waits that actually delay are counted as
// throttles.
func (r *RateLimiter) Wait(ctx context.Context) error {
	reservation := r.limiter.Reserve()
	if !reservation.OK() {
		return context.DeadlineExceeded
	}

	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}
	r.telemetry.IncrementThrottleCount()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		r.logger.Warn("Rate limiter wait failed", infralogger.Error(ctx.Err()))
		return ctx.Err()
	}
}
