package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/ragdesk/config"
	"github.com/hupe1980/ragdesk/logging"
)

// boundRetries clamps retries to [0, config.MaxRetries].
func boundRetries(retries int) int {
	return min(max(retries, 0), config.MaxRetries)
}

// callWithRetry runs fn under timeout. A call that times out is retried up to
// retries more times, never more than config.MaxRetries; any other failure is
// returned immediately.
func callWithRetry(
	ctx context.Context,
	logger logging.Logger,
	op string,
	timeout time.Duration,
	retries int,
	fn func(ctx context.Context) error,
) error {
	retries = boundRetries(retries)
	for attempt := 0; ; attempt++ {
		err := callWithTimeout(ctx, timeout, fn)
		if err == nil || !isTimeout(err) || attempt >= retries || ctx.Err() != nil {
			return err
		}
		logger.Warn("orchestrator.call.timeout_retry", "op", op, "attempt", attempt+1, "timeout", timeout.String())
	}
}

func callWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(cctx)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
