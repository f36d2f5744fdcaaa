package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/smsgate/pkg/carrier"
	"github.com/dmitrymomot/smsgate/pkg/logger"
	"github.com/dmitrymomot/smsgate/pkg/retry"
)

// Limiter admits outbound sends. Satisfied by *ratelimiter.TokenBucket.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// SendFunc performs one carrier submission.
type SendFunc func(ctx context.Context) (carrier.SendResult, error)

// PipelineConfig holds pipeline settings loaded from the environment.
type PipelineConfig struct {
	// GateEveryAttempt takes a limiter permit before every attempt instead
	// of only the first one of a logical send.
	GateEveryAttempt bool `env:"SMS_GATE_EVERY_ATTEMPT" envDefault:"false"`
}

// Pipeline composes the send limiter and the retry policy into the single
// entry point used for outbound messages.
type Pipeline struct {
	limiter    Limiter
	policy     *retry.Policy
	perAttempt bool
	breaker    *carrier.CircuitBreaker
	log        *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPerAttemptGating makes retries wait for a permit too, so retry storms
// count against the outbound budget. By default only the first attempt of a
// logical send is gated.
func WithPerAttemptGating(enabled bool) PipelineOption {
	return func(p *Pipeline) { p.perAttempt = enabled }
}

// WithCircuitBreaker fails sends fast with carrier.ErrCircuitOpen while the
// breaker is open. Only retryable failures count against the breaker.
func WithCircuitBreaker(cb *carrier.CircuitBreaker) PipelineOption {
	return func(p *Pipeline) { p.breaker = cb }
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline creates a send pipeline.
func NewPipeline(limiter Limiter, policy *retry.Policy, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		limiter: limiter,
		policy:  policy,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send acquires a permit, then runs send under the retry policy. It returns
// the carrier result or the terminal error. Tokens taken for a send that
// later fails are not returned.
func (p *Pipeline) Send(ctx context.Context, send SendFunc) (carrier.SendResult, error) {
	if !p.perAttempt {
		if err := p.limiter.Acquire(ctx); err != nil {
			return carrier.SendResult{}, fmt.Errorf("%w: %w", ErrNoSendPermit, err)
		}
	}

	return retry.Do(ctx, p.policy, func(ctx context.Context) (carrier.SendResult, error) {
		if p.perAttempt {
			if err := p.limiter.Acquire(ctx); err != nil {
				return carrier.SendResult{}, fmt.Errorf("%w: %w", ErrNoSendPermit, err)
			}
		}
		return p.attempt(ctx, send)
	})
}

func (p *Pipeline) attempt(ctx context.Context, send SendFunc) (carrier.SendResult, error) {
	if p.breaker == nil {
		return send(ctx)
	}

	if !p.breaker.Allow() {
		p.log.WarnContext(ctx, "carrier circuit open, failing send fast")
		return carrier.SendResult{}, carrier.ErrCircuitOpen
	}

	res, err := send(ctx)
	switch {
	case err == nil:
		p.breaker.RecordSuccess()
	case p.policy.Config().IsRetryable(err):
		p.breaker.RecordFailure()
	}
	return res, err
}
