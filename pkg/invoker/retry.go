package invoker

import (
	"context"
	"time"

	retry "github.com/avast/retry-go/v4"

	"github.com/skillkit/skilleval/pkg/logger"
)

// RetryConfig describes the bounded backoff applied to transient API errors.
type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	BackoffType  string // "exponential" (default) or "fixed"
}

// DefaultRetryConfig returns the harness defaults: three attempts with
// exponential backoff starting at one second, capped at ten.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		BackoffType:  "exponential",
	}
}

// withRetry runs fn under the retry policy. Only transient errors are
// retried; fatal errors and context cancellation surface immediately.
func withRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var delayType retry.DelayTypeFunc
	switch cfg.BackoffType {
	case "fixed":
		delayType = retry.FixedDelay
	default:
		delayType = retry.BackOffDelay
	}

	return retry.Do(
		fn,
		retry.RetryIf(IsTransient),
		retry.Attempts(uint(cfg.Attempts)),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(delayType),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("attempt", n+1).
				WithField("max_attempts", cfg.Attempts).
				Warn("retrying model API call")
		}),
	)
}
