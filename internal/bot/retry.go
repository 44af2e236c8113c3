package bot

import (
	"context"
	"errors"
	"time"

	"rangeTrader/internal/model"
)

// withRetry retries fn with exponential backoff while it fails with an
// UnavailableError. Other errors are returned immediately.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !isTransient(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
	}
}

func isTransient(err error) bool {
	var unavailable *model.UnavailableError
	return errors.As(err, &unavailable)
}
