package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custody/internal/config"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

func TestLoadSave_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := config.Defaults()
	cfg.Networks.Default = "base"
	cfg.Networks.Overrides = map[string]config.NetworkConfig{
		"bsc": {RPC: "https://bsc.example.org"},
	}
	cfg.Pending.TTL = config.Duration(90 * time.Second)
	cfg.Output.Verbose = true

	require.NoError(t, config.Save(cfg, path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Version, loaded.Version)
	assert.Equal(t, "base", loaded.Networks.Default)
	assert.Equal(t, "https://bsc.example.org", loaded.Networks.Overrides["bsc"].RPC)
	assert.Equal(t, 90*time.Second, loaded.Pending.TTL.Std())
	assert.True(t, loaded.Output.Verbose)
}

func TestLoad_DurationsAsStrings(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("pending:\n  ttl: 3m\nexecutor:\n  confirm_timeout: 45s\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Minute, cfg.Pending.TTL.Std())
	assert.Equal(t, 45*time.Second, cfg.Executor.ConfirmTimeout.Std())
	// untouched sections keep defaults
	assert.Equal(t, config.DefaultNetwork, cfg.Networks.Default)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pending:\n  ttl: soon\n"), 0o600))

		_, err := config.Load(path)
		require.ErrorIs(t, err, custodyerr.ErrConfiguration)
	})
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "~/.custody", cfg.Home)
	assert.Equal(t, config.KDFArgon2id, cfg.Vault.KeyDerivation)
	assert.Empty(t, cfg.Vault.Passphrase)
	assert.Equal(t, "bsc", cfg.Networks.Default)
	assert.Equal(t, 5*time.Minute, cfg.Pending.TTL.Std())
	assert.Equal(t, config.DatabaseMemory, cfg.Database.Driver)
	assert.Equal(t, config.NotifyConsole, cfg.Notify.Channel)
	assert.InDelta(t, 5.0, cfg.RateLimit.RequestsPerSecond, 0)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *config.Config {
		cfg := config.Defaults()
		cfg.Vault.Passphrase = "correct horse battery staple"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing passphrase", func(c *config.Config) { c.Vault.Passphrase = "" }},
		{"blank passphrase", func(c *config.Config) { c.Vault.Passphrase = "   " }},
		{"unknown kdf", func(c *config.Config) { c.Vault.KeyDerivation = "md5" }},
		{"no default network", func(c *config.Config) { c.Networks.Default = "" }},
		{"zero ttl", func(c *config.Config) { c.Pending.TTL = 0 }},
		{"postgres without dsn", func(c *config.Config) { c.Database.Driver = config.DatabasePostgres }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, custodyerr.ErrConfiguration)
			assert.Equal(t, custodyerr.ExitConfig, custodyerr.ExitCode(err))
		})
	}
}

func TestPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("/tmp/custody", "config.yaml"), config.Path("/tmp/custody"))
}
