// Package daylock serializes work per key, typically one calendar day of
// bookings, across goroutines or across processes.
package daylock

import (
	"context"
	"errors"
	"time"
)

var ErrLockTimeout = errors.New("timed out waiting for booking lock")

// Locker hands out exclusive locks by key. The returned unlock func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// DayKey is the lock key for bookings on the calendar day of t.
func DayKey(t time.Time) string {
	return "appointments:" + t.Format(time.DateOnly)
}
