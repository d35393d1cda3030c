package config

import "time"

// Key derivation functions accepted by the vault.
const (
	KDFArgon2id = "argon2id"
	KDFScrypt   = "scrypt"
)

// Account store drivers.
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
)

// Notification channels.
const (
	NotifyNone     = "none"
	NotifyConsole  = "console"
	NotifyWhatsApp = "whatsapp"
)

// DefaultNetwork is the canonical network used when a caller does not
// name one at the CLI or router layer. The engine itself never defaults.
const DefaultNetwork = "bsc"

// DefaultWhatsAppAPIURL is the Graph API base used by the Cloud API.
const DefaultWhatsAppAPIURL = "https://graph.facebook.com/v18.0"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.custody",
		Vault: VaultConfig{
			KeyDerivation: KDFArgon2id,
		},
		Networks: NetworksConfig{
			Default: DefaultNetwork,
		},
		Pending: PendingConfig{
			TTL:           Duration(5 * time.Minute),
			SweepInterval: Duration(10 * time.Second),
		},
		Executor: ExecutorConfig{
			ConfirmTimeout: Duration(2 * time.Minute),
			PollInterval:   Duration(2 * time.Second),
		},
		Notify: NotifyConfig{
			Channel: NotifyConsole,
			WhatsApp: WhatsAppConfig{
				APIURL: DefaultWhatsAppAPIURL,
			},
		},
		Database: DatabaseConfig{
			Driver: DatabaseMemory,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
		},
	}
}
