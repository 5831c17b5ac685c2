package walk

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay is the pause before each folder descent.
const DefaultDelay = 120 * time.Millisecond

// RateLimiter paces folder descents. Wait blocks the calling goroutine only
// and returns early with the context error when ctx is done.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// FixedDelay waits the same duration before every descent regardless of
// observed load.
type FixedDelay time.Duration

// Wait sleeps for the delay or until ctx is canceled.
func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay never waits. Used by tests and by rate_limit.mode = "none".
type NoDelay struct{}

// Wait returns immediately unless ctx is already done.
func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}

// TokenBucket admits one descent per interval on average with a burst
// allowance, so short folders at the start of a walk are not penalized.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a bucket refilling one token every interval.
// burst below 1 is treated as 1.
func NewTokenBucket(interval time.Duration, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}

	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Wait blocks until a token is available.
func (b *TokenBucket) Wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("walk: rate limiter: %w", err)
	}

	return nil
}

// Limiter modes accepted by NewLimiter.
const (
	ModeFixed       = "fixed"
	ModeTokenBucket = "token_bucket"
	ModeNone        = "none"
)

// NewLimiter builds a RateLimiter for the given mode. Each walk gets its own
// limiter so concurrent requests never share pacing state.
func NewLimiter(mode string, delay time.Duration, burst int) (RateLimiter, error) {
	switch mode {
	case "", ModeFixed:
		return FixedDelay(delay), nil
	case ModeTokenBucket:
		if delay <= 0 {
			return nil, fmt.Errorf("walk: token bucket needs a positive delay, got %s", delay)
		}

		return NewTokenBucket(delay, burst), nil
	case ModeNone:
		return NoDelay{}, nil
	default:
		return nil, fmt.Errorf("walk: unknown rate limit mode %q", mode)
	}
}
