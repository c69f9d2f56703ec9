package retry

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// NewLimiter returns a limiter allowing rps operations per second with a
// burst of one second's worth of operations. It returns nil when rps <= 0,
// meaning unlimited.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(math.Ceil(rps))
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until limiter permits one operation. A nil limiter never blocks.
func Wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
