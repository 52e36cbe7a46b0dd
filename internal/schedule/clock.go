package schedule

import (
	"context"
	"time"
)

// Clock is the time source the trigger loop sleeps on.
type Clock interface {
	Now() time.Time
	WaitUntil(ctx context.Context, at time.Time) error
}

type RealClock struct {
	Location *time.Location
}

func NewRealClock(loc *time.Location) RealClock {
	if loc == nil {
		loc = time.Local
	}
	return RealClock{Location: loc}
}

func (c RealClock) Now() time.Time {
	return time.Now().In(c.Location)
}

// WaitUntil returns immediately for timestamps in the past.
func (c RealClock) WaitUntil(ctx context.Context, at time.Time) error {
	delay := time.Until(at)
	if delay <= 0 {
		return ctx.Err()
	}
	return WaitForContext(ctx, delay)
}

func WaitForContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
