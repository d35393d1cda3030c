// Package config provides configuration management for the custody engine.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/custody/internal/fileutil"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Vault     VaultConfig     `yaml:"vault"`
	Networks  NetworksConfig  `yaml:"networks"`
	Pending   PendingConfig   `yaml:"pending"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Notify    NotifyConfig    `yaml:"notify"`
	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// VaultConfig defines the key vault settings.
// The passphrase is normally supplied through CUSTODY_VAULT_PASSPHRASE
// rather than written to disk.
type VaultConfig struct {
	Passphrase    string `yaml:"passphrase,omitempty"`
	KeyDerivation string `yaml:"key_derivation"`
}

// NetworksConfig selects the default network and customizes the registry.
type NetworksConfig struct {
	Default   string                   `yaml:"default"`
	Overrides map[string]NetworkConfig `yaml:"overrides,omitempty"`
}

// NetworkConfig overrides or adds a network. Zero fields keep the
// built-in value when the id is already known.
type NetworkConfig struct {
	Name          string       `yaml:"name,omitempty"`
	RPC           string       `yaml:"rpc,omitempty"`
	ChainID       int64        `yaml:"chain_id,omitempty"`
	NativeSymbol  string       `yaml:"native_symbol,omitempty"`
	MinFeeReserve string       `yaml:"min_fee_reserve,omitempty"`
	Token         *TokenConfig `yaml:"token,omitempty"`
}

// TokenConfig defines the ERC-20 token transferred on a network.
type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
}

// PendingConfig defines the confirmation window.
type PendingConfig struct {
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// ExecutorConfig defines how long the executor waits on the chain.
type ExecutorConfig struct {
	ConfirmTimeout Duration `yaml:"confirm_timeout"`
	PollInterval   Duration `yaml:"poll_interval"`
}

// NotifyConfig selects the outbound notification channel.
type NotifyConfig struct {
	Channel  string         `yaml:"channel"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
}

// WhatsAppConfig holds WhatsApp Cloud API credentials.
type WhatsAppConfig struct {
	APIURL        string `yaml:"api_url"`
	PhoneNumberID string `yaml:"phone_number_id"`
	Token         string `yaml:"token,omitempty"`
}

// DatabaseConfig selects the account store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

// RateLimitConfig bounds outbound RPC and API calls per endpoint.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings. An empty File means
// custody.log in the home directory.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// MetricsConfig defines the Prometheus listener.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Duration is a time.Duration that reads and writes as "5m" in YAML.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, custodyerr.WithCause(custodyerr.ErrConfiguration, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate checks the settings the engine cannot start without.
// A missing vault passphrase is fatal.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vault.Passphrase) == "" {
		return custodyerr.WithSuggestion(
			custodyerr.Wrap(custodyerr.ErrConfiguration, "vault passphrase is not set"),
			"set "+EnvPrefix+"_VAULT_PASSPHRASE or vault.passphrase in the config file",
		)
	}

	switch c.Vault.KeyDerivation {
	case KDFArgon2id, KDFScrypt:
	default:
		return custodyerr.Wrap(custodyerr.ErrConfiguration, "unknown key derivation %q", c.Vault.KeyDerivation)
	}

	if strings.TrimSpace(c.Networks.Default) == "" {
		return custodyerr.Wrap(custodyerr.ErrConfiguration, "default network is not set")
	}

	if c.Pending.TTL.Std() <= 0 {
		return custodyerr.Wrap(custodyerr.ErrConfiguration, "pending ttl must be positive")
	}

	if c.Database.Driver == DatabasePostgres && c.Database.DSN == "" {
		return custodyerr.Wrap(custodyerr.ErrConfiguration, "postgres driver requires a dsn")
	}

	return nil
}

// GetHome returns the custody home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// DefaultHome returns the default custody home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".custody"
	}
	return filepath.Join(home, ".custody")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
