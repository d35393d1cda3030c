package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// EnvPrefix is prepended to every environment override, e.g.
// CUSTODY_VAULT_PASSPHRASE.
const EnvPrefix = "CUSTODY"

// EnvHome names the home directory override.
const EnvHome = EnvPrefix + "_HOME"

// environment mirrors the overridable settings. Pointer fields stay nil
// when the variable is unset so defaults and file values survive.
type environment struct {
	Home            string         `split_words:"true"`
	VaultPassphrase string         `split_words:"true"`
	KeyDerivation   string         `split_words:"true"`
	DefaultNetwork  string         `split_words:"true"`
	RPC             []string       `split_words:"true"`
	PendingTTL      *time.Duration `split_words:"true"`
	NotifyChannel   string         `split_words:"true"`
	WhatsappURL     string         `split_words:"true"`
	WhatsappPhoneID string         `split_words:"true"`
	WhatsappToken   string         `split_words:"true"`
	DatabaseDSN     string         `split_words:"true"`
	LogLevel        string         `split_words:"true"`
	LogFile         string         `split_words:"true"`
	MetricsAddr     string         `split_words:"true"`
	Verbose         *bool          `split_words:"true"`
}

// ApplyEnvironment applies CUSTODY_* environment overrides to cfg.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) error {
	var env environment
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return custodyerr.WithCause(custodyerr.ErrConfiguration, err)
	}

	if env.Home != "" {
		cfg.Home = env.Home
	}
	if env.VaultPassphrase != "" {
		cfg.Vault.Passphrase = env.VaultPassphrase
	}
	if env.KeyDerivation != "" {
		cfg.Vault.KeyDerivation = strings.ToLower(env.KeyDerivation)
	}
	if env.DefaultNetwork != "" {
		cfg.Networks.Default = strings.ToLower(env.DefaultNetwork)
	}

	// CUSTODY_RPC=bsc=https://...,base=https://...
	for _, pair := range env.RPC {
		id, rpc, ok := strings.Cut(pair, "=")
		rpc = SanitizeURL(rpc)
		if !ok || rpc == "" {
			continue
		}
		if cfg.Networks.Overrides == nil {
			cfg.Networks.Overrides = make(map[string]NetworkConfig)
		}
		id = strings.ToLower(strings.TrimSpace(id))
		override := cfg.Networks.Overrides[id]
		override.RPC = rpc
		cfg.Networks.Overrides[id] = override
	}

	if env.PendingTTL != nil && *env.PendingTTL > 0 {
		cfg.Pending.TTL = Duration(*env.PendingTTL)
	}
	if env.NotifyChannel != "" {
		cfg.Notify.Channel = strings.ToLower(env.NotifyChannel)
	}
	if env.WhatsappURL != "" {
		cfg.Notify.WhatsApp.APIURL = SanitizeURL(env.WhatsappURL)
	}
	if env.WhatsappPhoneID != "" {
		cfg.Notify.WhatsApp.PhoneNumberID = env.WhatsappPhoneID
	}
	if env.WhatsappToken != "" {
		cfg.Notify.WhatsApp.Token = env.WhatsappToken
	}
	if env.DatabaseDSN != "" {
		cfg.Database.DSN = env.DatabaseDSN
		cfg.Database.Driver = DatabasePostgres
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(env.LogLevel)
	}
	if env.LogFile != "" {
		cfg.Logging.File = env.LogFile
	}
	if env.MetricsAddr != "" {
		cfg.Metrics.ListenAddr = env.MetricsAddr
	}
	if env.Verbose != nil {
		cfg.Output.Verbose = *env.Verbose
	}

	return nil
}

// SanitizeURL trims copy-paste whitespace and returns "" for anything
// that is not an absolute http(s) or ws(s) URL.
func SanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return u.String()
	default:
		return ""
	}
}
