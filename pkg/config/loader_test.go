package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/config"
)

type sampleConfig struct {
	Addr    string        `env:"HTTP_ADDR" envDefault:":8080"`
	TTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	Enabled bool          `env:"RECONCILE_ENABLED" envDefault:"false"`
}

type requiredConfig struct {
	URL string `env:"BROKER_URL,required"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		var cfg sampleConfig
		require.NoError(t, config.Load(&cfg, config.WithEnviron(map[string]string{})))
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 24*time.Hour, cfg.TTL)
		assert.False(t, cfg.Enabled)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()

		var cfg sampleConfig
		err := config.Load(&cfg, config.WithEnviron(map[string]string{
			"HTTP_ADDR":         ":9000",
			"IDEMPOTENCY_TTL":   "1h",
			"RECONCILE_ENABLED": "true",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Addr)
		assert.Equal(t, time.Hour, cfg.TTL)
		assert.True(t, cfg.Enabled)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()

		var cfg sampleConfig
		err := config.Load(&cfg,
			config.WithPrefix("GATEWAY_"),
			config.WithEnviron(map[string]string{"GATEWAY_HTTP_ADDR": ":7000"}),
		)
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Addr)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Parallel()

		var cfg requiredConfig
		err := config.Load(&cfg, config.WithEnviron(map[string]string{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()

		var cfg *sampleConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestMustLoadPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg, config.WithEnviron(map[string]string{}))
	})
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("NOTIFYHUB_DOTENV_PROBE=from-file\n"), 0o600))

	type probe struct {
		Value string `env:"NOTIFYHUB_DOTENV_PROBE"`
	}

	t.Cleanup(func() { _ = os.Unsetenv("NOTIFYHUB_DOTENV_PROBE") })

	var cfg probe
	require.NoError(t, config.Load(&cfg, config.WithDotenv(path)))
	assert.Equal(t, "from-file", cfg.Value)
}
