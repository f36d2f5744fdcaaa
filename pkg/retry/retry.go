package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/smsgate/pkg/clock"
	"github.com/dmitrymomot/smsgate/pkg/logger"
)

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	Number int           // 1-based number of the attempt that failed
	Delay  time.Duration // pause before the next attempt
	Err    error
}

// Policy executes operations under a retry Config. Safe for concurrent use.
type Policy struct {
	cfg     Config
	clock   clock.Clock
	jitter  func() time.Duration
	log     *slog.Logger
	onRetry func(Attempt)
}

// Option configures a Policy.
type Option func(*Policy)

// WithClock sets the clock used for sleeps between attempts.
func WithClock(c clock.Clock) Option {
	return func(p *Policy) { p.clock = c }
}

// WithJitter replaces the random jitter source. Values are clamped to be
// non-negative.
func WithJitter(fn func() time.Duration) Option {
	return func(p *Policy) { p.jitter = fn }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) { p.log = l }
}

// WithOnRetry registers a hook called before every sleep.
func WithOnRetry(fn func(Attempt)) Option {
	return func(p *Policy) { p.onRetry = fn }
}

// New creates a Policy. Zero fields of cfg fall back to the defaults.
func New(cfg Config, opts ...Option) *Policy {
	p := &Policy{
		cfg:    cfg.withDefaults(),
		clock:  clock.Real(),
		jitter: RandomJitter,
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration.
func (p *Policy) Config() Config {
	return p.cfg
}

// Execute runs op until it succeeds, returns a terminal error, or the
// attempts run out. The error of the last attempt is returned as is.
// A context cancelled during a sleep ends the loop with ctx.Err().
func (p *Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is the value-returning form of Policy.Execute.
func Do[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	delay := p.cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		if attempt >= p.cfg.MaxAttempts || !p.cfg.IsRetryable(err) {
			return res, err
		}

		p.log.WarnContext(ctx, "operation failed, retrying",
			logger.Attempt(attempt, p.cfg.MaxAttempts),
			slog.Duration("delay", delay),
			logger.Error(err),
		)
		if p.onRetry != nil {
			p.onRetry(Attempt{Number: attempt, Delay: delay, Err: err})
		}

		if err := p.sleep(ctx, delay); err != nil {
			var zero T
			return zero, err
		}

		delay = NextDelay(delay, p.cfg.MaxDelay, p.jitter())
	}
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}
