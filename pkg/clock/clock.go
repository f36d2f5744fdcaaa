// Package clock abstracts time so that limiters and retry loops can be
// driven by simulated time in tests.
//
// Production code takes a Clock and defaults to Real(). Tests pass a
// FakeClock and move time forward explicitly with Advance:
//
//	c := clock.Fake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
//	go func() { <-c.After(time.Second) }()
//	c.WaitForTimers(1)
//	c.Advance(time.Second)
package clock

import "time"

// Clock is the subset of the time package used by this module.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a ticker delivering ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker mirrors time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No more ticks are sent after Stop returns.
func (t *Ticker) Stop() { t.stopFunc() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stopFunc: t.Stop}
}
