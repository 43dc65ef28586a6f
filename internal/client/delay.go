package client

import (
	"context"
	"math/rand/v2"
	"time"
)

// DelayPolicy is applied before every request. Development builds use it to
// make loading states visible; tests and production use NoDelay.
type DelayPolicy interface {
	Wait(ctx context.Context) error
}

// NoDelay sends requests immediately.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}

// RandomDelay waits a uniformly distributed duration in [Min, Max].
type RandomDelay struct {
	Min time.Duration
	Max time.Duration

	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRandomDelay(min, max time.Duration) *RandomDelay {
	if max < min {
		min, max = max, min
	}
	return &RandomDelay{Min: min, Max: max, sleep: sleepContext}
}

func (r *RandomDelay) Next() time.Duration {
	span := int64(r.Max - r.Min)
	if span <= 0 {
		return r.Min
	}
	return r.Min + time.Duration(rand.Int64N(span+1))
}

func (r *RandomDelay) Wait(ctx context.Context) error {
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, r.Next())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
