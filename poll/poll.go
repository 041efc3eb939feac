// Package poll holds the bounded waiting primitive shared by every stage
// that has to wait for the live page to catch up.
package poll

import (
	"context"
	"time"
)

// Until waits interval, evaluates check, and repeats up to attempts times.
// It stops early when check returns true or ctx is done. It returns whether
// check succeeded and how many times check ran.
//
// The total wait is bounded by interval*attempts; there is no other timeout.
func Until(ctx context.Context, interval time.Duration, attempts int, check func(ctx context.Context) bool) (bool, int) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for n := 1; n <= attempts; n++ {
		select {
		case <-ctx.Done():
			return false, n - 1
		case <-timer.C:
		}
		if check(ctx) {
			return true, n
		}
		timer.Reset(interval)
	}
	return false, attempts
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
