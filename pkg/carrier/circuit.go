package carrier

import (
	"sync"
	"time"

	"github.com/dmitrymomot/smsgate/pkg/clock"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets sends through.
	CircuitClosed CircuitState = iota
	// CircuitOpen fails sends fast.
	CircuitOpen
	// CircuitHalfOpen lets trial sends through to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitConfig configures a CircuitBreaker.
type CircuitConfig struct {
	FailureThreshold int           `env:"CARRIER_CIRCUIT_FAILURES" envDefault:"5"`
	SuccessThreshold int           `env:"CARRIER_CIRCUIT_SUCCESSES" envDefault:"2"`
	RecoveryTimeout  time.Duration `env:"CARRIER_CIRCUIT_RECOVERY" envDefault:"30s"`
}

// CircuitBreaker stops outbound sends after consecutive carrier failures
// and tests for recovery after a cool-down. Safe for concurrent use.
type CircuitBreaker struct {
	mu    sync.Mutex
	clock clock.Clock

	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration

	state           CircuitState
	failures        int
	successCount    int // consecutive successes while half-open
	lastFailureTime time.Time
}

// NewCircuitBreaker creates a closed breaker. Zero config fields fall back to
// 5 failures, 2 successes and 30s recovery.
func NewCircuitBreaker(cfg CircuitConfig, c clock.Clock) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if c == nil {
		c = clock.Real()
	}

	return &CircuitBreaker{
		clock:            c,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		recoveryTimeout:  cfg.RecoveryTimeout,
		state:            CircuitClosed,
	}
}

// Allow reports whether a send may proceed. An open breaker moves to
// half-open once the recovery timeout has passed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if cb.recovered() {
			cb.state = CircuitHalfOpen
			cb.successCount = 0
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful send and may close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
			cb.successCount = 0
		}
	}
}

// RecordFailure records a failed send and may open the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.clock.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.failures = cb.failureThreshold
		cb.successCount = 0
	}
}

// State returns the state Allow would observe.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && cb.recovered() {
		return CircuitHalfOpen
	}
	return cb.state
}

// Reset closes the circuit and clears counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.successCount = 0
	cb.lastFailureTime = time.Time{}
}

func (cb *CircuitBreaker) recovered() bool {
	return cb.clock.Now().Sub(cb.lastFailureTime) >= cb.recoveryTimeout
}
