package retry

import "time"

// Defaults used by DefaultConfig and to fill zero fields.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 30 * time.Second

	// MaxJitter bounds the random component added to every grown delay.
	MaxJitter = time.Second
)

// Config controls how many times and how patiently an operation is retried.
type Config struct {
	MaxAttempts  int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	InitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	MaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`

	// IsRetryable decides whether an error is worth another attempt.
	// Nil means DefaultIsRetryable.
	IsRetryable func(error) bool `env:"-"`
}

// DefaultConfig returns 3 attempts starting at 1s and capped at 30s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		IsRetryable:  DefaultIsRetryable,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.IsRetryable == nil {
		c.IsRetryable = DefaultIsRetryable
	}
	return c
}
