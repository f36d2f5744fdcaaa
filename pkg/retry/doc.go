// Package retry runs an operation until it succeeds, fails with an error the
// classifier considers terminal, or exhausts its attempts.
//
// Delays start at InitialDelay and grow as min(MaxDelay, delay*2 + jitter)
// with jitter drawn from [0, 1s). Each scheduled retry is logged at warn
// level with the attempt number and the error that caused it.
//
//	policy := retry.New(retry.DefaultConfig(), retry.WithLogger(log))
//	res, err := retry.Do(ctx, policy, func(ctx context.Context) (carrier.SendResult, error) {
//		return client.Send(ctx, to, body)
//	})
//
// The default classifier retries carrier errors whose code is on the
// transient allow-list and network failures recognised by their message.
// Everything else, including programmer errors, fails on the first attempt.
package retry
