// Package config loads typed configuration from environment variables using
// struct tags understood by github.com/caarlos0/env.
//
// Each component owns a config struct next to its code (carrier.Config,
// retry.Config, pg.Config and so on). main loads them with Load, which
// caches one value per type, reads an optional .env file through
// github.com/joho/godotenv and reports every missing or malformed variable
// at once.
//
// Parse is the uncached form and accepts a prefix or an explicit variable
// map, which is what tests use.
package config
