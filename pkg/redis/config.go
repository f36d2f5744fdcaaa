package redis

import "time"

// Config holds the Redis connection settings.
type Config struct {
	ConnectionURL   string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	ConnectAttempts int           `env:"REDIS_CONNECT_ATTEMPTS" envDefault:"3"`
	ConnectInterval time.Duration `env:"REDIS_CONNECT_INTERVAL" envDefault:"2s"`
	ConnectTimeout  time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // bounds all attempts together
}
