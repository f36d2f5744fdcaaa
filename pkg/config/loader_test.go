package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/pkg/config"
)

type cachedConfig struct {
	Name     string        `env:"SMSGATE_TEST_NAME" envDefault:"smsgate"`
	Attempts int           `env:"SMSGATE_TEST_ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"SMSGATE_TEST_DELAY" envDefault:"1s"`
}

type requiredConfig struct {
	Token string `env:"SMSGATE_TEST_REQUIRED_TOKEN,required"`
}

type fileConfig struct {
	FileValue string `env:"SMSGATE_TEST_FILE_VALUE"`
	Shared    string `env:"SMSGATE_TEST_SHARED"`
}

func TestLoad_CachesPerType(t *testing.T) {
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	t.Setenv("SMSGATE_TEST_ATTEMPTS", "5")

	var first cachedConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "smsgate", first.Name)
	assert.Equal(t, 5, first.Attempts)
	assert.Equal(t, time.Second, first.Delay)

	t.Setenv("SMSGATE_TEST_ATTEMPTS", "9")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, 5, second.Attempts)

	config.ResetCache()
	var third cachedConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, 9, third.Attempts)
}

func TestLoad_Errors(t *testing.T) {
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	var cfg requiredConfig
	assert.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)

	var nilCfg *requiredConfig
	assert.ErrorIs(t, config.Load(nilCfg), config.ErrNilPointer)

	t.Setenv("SMSGATE_TEST_DELAY", "soon")
	var bad cachedConfig
	assert.ErrorIs(t, config.Load(&bad), config.ErrParsingConfig)
}

func TestParse(t *testing.T) {
	t.Parallel()

	var cfg cachedConfig
	err := config.Parse(&cfg, config.WithEnvironment(map[string]string{
		"SMSGATE_TEST_NAME":  "from-map",
		"SMSGATE_TEST_DELAY": "250ms",
	}))
	require.NoError(t, err)
	assert.Equal(t, "from-map", cfg.Name)
	assert.Equal(t, 3, cfg.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Delay)

	type prefixed struct {
		Name string `env:"NAME"`
	}
	var p prefixed
	require.NoError(t, config.Parse(&p,
		config.WithPrefix("SMSGATE_"),
		config.WithEnvironment(map[string]string{"SMSGATE_NAME": "x", "NAME": "y"}),
	))
	assert.Equal(t, "x", p.Name)

	var req requiredConfig
	assert.ErrorIs(t, config.Parse(&req, config.WithEnvironment(map[string]string{})), config.ErrParsingConfig)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SMSGATE_TEST_SHARED", "process")
	// Registered with t.Setenv so the value godotenv sets is undone after the test.
	t.Setenv("SMSGATE_TEST_FILE_VALUE", "")
	require.NoError(t, os.Unsetenv("SMSGATE_TEST_FILE_VALUE"))

	require.NoError(t, config.LoadEnv("testdata/.env.test"))

	var cfg fileConfig
	require.NoError(t, config.Parse(&cfg))
	assert.Equal(t, "from-file", cfg.FileValue)
	assert.Equal(t, "process", cfg.Shared)

	assert.ErrorIs(t, config.LoadEnv("testdata/missing.env"), config.ErrLoadingEnvFile)
}
