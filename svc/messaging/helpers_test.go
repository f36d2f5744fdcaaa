package messaging_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/smsgate/pkg/carrier"
	"github.com/dmitrymomot/smsgate/pkg/clock"
	"github.com/dmitrymomot/smsgate/pkg/retry"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// instantClock reports a fixed time and fires timers immediately.
type instantClock struct{ now time.Time }

func (c instantClock) Now() time.Time { return c.now }

func (c instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c instantClock) NewTicker(time.Duration) *clock.Ticker { panic("not used") }

func instantPolicy() *retry.Policy {
	return retry.New(retry.DefaultConfig(),
		retry.WithClock(instantClock{now: epoch}),
		retry.WithJitter(func() time.Duration { return 0 }),
	)
}

// countingLimiter counts permits and fails with err once set.
type countingLimiter struct {
	calls atomic.Int32
	err   error
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	l.calls.Add(1)
	if l.err != nil {
		return l.err
	}
	return ctx.Err()
}

// scriptedSender returns the queued errors in order, then succeeds.
type scriptedSender struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	sentTo []string
}

func (s *scriptedSender) From() string { return "+15550000000" }

func (s *scriptedSender) Send(_ context.Context, to, _ string) (carrier.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.sentTo = append(s.sentTo, to)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return carrier.SendResult{}, err
	}
	return carrier.SendResult{SID: "SMout1", Status: "queued", Segments: 1}, nil
}

func (s *scriptedSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
