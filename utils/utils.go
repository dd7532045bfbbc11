package utils

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrPermanent marks an error that must not be retried. Wrap with
// errors.Join(utils.ErrPermanent, err) at the call site.
var ErrPermanent = errors.New("permanent error")

// sleepCtx is swapped out by tests to observe backoff waits.
var sleepCtx = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GoRetry retries f up to times attempts with exponential backoff starting at
// waitBase. The returned channel yields the final error, or closes without a
// value on success.
func GoRetry(times int, waitBase time.Duration, f func() error) <-chan error {
	return GoRetryCtx(context.Background(), times, waitBase, func(context.Context) error {
		return f()
	})
}

// GoRetryCtx is GoRetry with context cancellation between attempts. An error
// wrapping ErrPermanent aborts immediately. The wait before attempt n+1 is
// waitBase<<n, jittered down to at most half, so retries spread out against a
// provider that just failed for everyone at once.
func GoRetryCtx(ctx context.Context, times int, waitBase time.Duration, f func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		wait := waitBase
		var err error
		for i := 0; i < times; i++ {
			err = f(ctx)
			if err == nil {
				return
			}
			if errors.Is(err, ErrPermanent) {
				done <- err
				return
			}
			if i == times-1 {
				break
			}
			if serr := sleepCtx(ctx, jitter(wait)); serr != nil {
				done <- errors.Join(err, serr)
				return
			}
			wait *= 2
		}
		done <- err
	}()
	return done
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half+1)))
}
