package ctxtime

import (
	"context"
	"time"
)

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return nil
}

// Retry calls fn once and then up to retries more times while fn asks to be
// retried, sleeping delay before every retry. It returns the error of the
// last call, or the context error if ctx is done while waiting.
func Retry(ctx context.Context, retries int, delay time.Duration, fn func(attempt int) (retry bool, err error)) error {
	for attempt := 0; ; attempt++ {
		retry, err := fn(attempt)
		if !retry || attempt >= retries {
			return err
		}
		if serr := Sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}
