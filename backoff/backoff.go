// Package backoff provides jittered exponential waits, used when polling a
// fixture that was launched outside the test process until it answers.
package backoff

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"
)

const (
	DefaultInterval    = 50 * time.Millisecond
	DefaultMaxInterval = 2 * time.Second
)

// ExponentialBackoff provides jittered exponential durations for the purpose of
// avoiding flooding a service with requests.
type ExponentialBackoff struct {
	Interval time.Duration
	Max      time.Duration

	currentInterval atomic.Value
}

// New creates a new ExponentialBackoff instance with the default values.
func New() *ExponentialBackoff {
	backoff := ExponentialBackoff{
		Interval: DefaultInterval,
		Max:      DefaultMaxInterval,
	}
	backoff.Reset()
	return &backoff
}

// Reset should be called after a request succeeds.
func (b *ExponentialBackoff) Reset() {
	b.currentInterval.Store(b.Interval)
}

// Wait increases the backoff and blocks until the duration is over or the
// context is done, in which case the context's error is returned.
func (b *ExponentialBackoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.NextBackoff())
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextBackoff updates the time interval and returns the updated value.
func (b *ExponentialBackoff) NextBackoff() time.Duration {
	d := b.next()
	if d > b.Max {
		d = b.Max
	}

	b.currentInterval.Store(d)
	return d
}

// next provides the exponential jittered backoff value. See
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
// for rationale.
func (b *ExponentialBackoff) next() time.Duration {
	current, _ := b.currentInterval.Load().(time.Duration)
	if current <= 0 {
		current = b.Interval
	}
	d := float64(current * 2)
	jitter := rand.Float64() + 0.5
	return time.Duration(d * jitter)
}
