package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/pkg/carrier"
	"github.com/dmitrymomot/smsgate/pkg/clock"
	"github.com/dmitrymomot/smsgate/pkg/ratelimiter"
	"github.com/dmitrymomot/smsgate/svc/messaging"
)

var errUnavailable = &carrier.ProviderError{HTTPStatus: 503, Code: carrier.CodeServiceUnavailable, Message: "Service Unavailable"}

func TestPipeline_Gating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		perAttempt bool
		wantPermit int32
	}{
		{name: "first attempt only", perAttempt: false, wantPermit: 1},
		{name: "every attempt", perAttempt: true, wantPermit: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limiter := &countingLimiter{}
			sender := &scriptedSender{errs: []error{errUnavailable, errUnavailable}}
			p := messaging.NewPipeline(limiter, instantPolicy(), messaging.WithPerAttemptGating(tt.perAttempt))

			res, err := p.Send(context.Background(), func(ctx context.Context) (carrier.SendResult, error) {
				return sender.Send(ctx, "+15551234567", "hi")
			})

			require.NoError(t, err)
			assert.Equal(t, "SMout1", res.SID)
			assert.Equal(t, 3, sender.Calls())
			assert.Equal(t, tt.wantPermit, limiter.calls.Load())
		})
	}
}

func TestPipeline_TerminalErrorNotRetried(t *testing.T) {
	t.Parallel()

	invalid := &carrier.ProviderError{HTTPStatus: 400, Code: 21211, Message: "Invalid 'To' Phone Number"}
	sender := &scriptedSender{errs: []error{invalid}}
	p := messaging.NewPipeline(&countingLimiter{}, instantPolicy())

	_, err := p.Send(context.Background(), func(ctx context.Context) (carrier.SendResult, error) {
		return sender.Send(ctx, "+15551234567", "hi")
	})

	require.Error(t, err)
	pe, ok := carrier.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, 21211, pe.Code)
	assert.Equal(t, 1, sender.Calls())
}

func TestPipeline_AttemptsExhausted(t *testing.T) {
	t.Parallel()

	sender := &scriptedSender{errs: []error{errUnavailable, errUnavailable, errUnavailable, errUnavailable}}
	p := messaging.NewPipeline(&countingLimiter{}, instantPolicy())

	_, err := p.Send(context.Background(), func(ctx context.Context) (carrier.SendResult, error) {
		return sender.Send(ctx, "+15551234567", "hi")
	})

	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, 3, sender.Calls())
}

func TestPipeline_LimiterFailure(t *testing.T) {
	t.Parallel()

	for _, perAttempt := range []bool{false, true} {
		limiter := &countingLimiter{err: errors.New("limiter closed")}
		sender := &scriptedSender{}
		p := messaging.NewPipeline(limiter, instantPolicy(), messaging.WithPerAttemptGating(perAttempt))

		_, err := p.Send(context.Background(), func(ctx context.Context) (carrier.SendResult, error) {
			return sender.Send(ctx, "+15551234567", "hi")
		})

		assert.ErrorIs(t, err, messaging.ErrNoSendPermit)
		assert.Equal(t, 0, sender.Calls())
	}
}

func TestPipeline_CancelledWhileWaitingForPermit(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	bucket, err := ratelimiter.NewTokenBucket(ratelimiter.TokenBucketConfig{MaxTokens: 1, RefillRate: 1}, ratelimiter.WithClock(clk))
	require.NoError(t, err)
	require.True(t, bucket.TryAcquire())

	sender := &scriptedSender{}
	p := messaging.NewPipeline(bucket, instantPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Send(ctx, func(ctx context.Context) (carrier.SendResult, error) {
			return sender.Send(ctx, "+15551234567", "hi")
		})
		done <- err
	}()

	clk.WaitForTimers(1)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, messaging.ErrNoSendPermit)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("send did not return after cancellation")
	}
	assert.Equal(t, 0, sender.Calls())
}

func TestPipeline_CircuitBreaker(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	cb := carrier.NewCircuitBreaker(carrier.CircuitConfig{FailureThreshold: 2, SuccessThreshold: 1, RecoveryTimeout: time.Minute}, clk)
	sender := &scriptedSender{errs: []error{errUnavailable, errUnavailable}}
	p := messaging.NewPipeline(&countingLimiter{}, instantPolicy(), messaging.WithCircuitBreaker(cb))

	send := func(ctx context.Context) (carrier.SendResult, error) {
		return sender.Send(ctx, "+15551234567", "hi")
	}

	// Two transient failures open the breaker; the third attempt fails fast.
	_, err := p.Send(context.Background(), send)
	assert.ErrorIs(t, err, carrier.ErrCircuitOpen)
	assert.Equal(t, 2, sender.Calls())
	assert.Equal(t, carrier.CircuitOpen, cb.State())

	clk.Advance(time.Minute)
	res, err := p.Send(context.Background(), send)
	require.NoError(t, err)
	assert.Equal(t, "SMout1", res.SID)
	assert.Equal(t, carrier.CircuitClosed, cb.State())
}

func TestPipeline_TerminalErrorsDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	cb := carrier.NewCircuitBreaker(carrier.CircuitConfig{FailureThreshold: 1}, clock.Fake(epoch))
	invalid := &carrier.ProviderError{HTTPStatus: 400, Code: 21211}
	sender := &scriptedSender{errs: []error{invalid}}
	p := messaging.NewPipeline(&countingLimiter{}, instantPolicy(), messaging.WithCircuitBreaker(cb))

	_, err := p.Send(context.Background(), func(ctx context.Context) (carrier.SendResult, error) {
		return sender.Send(ctx, "+15551234567", "hi")
	})

	require.Error(t, err)
	assert.Equal(t, carrier.CircuitClosed, cb.State())
}
