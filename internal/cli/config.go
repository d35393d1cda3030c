package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/custody/internal/config"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const redacted = "********"

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var configForce bool

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize the configuration",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	Long: `Print the configuration after the file, CUSTODY_* environment
variables and flags have been applied. Secrets are redacted.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the home directory",
	Long: `Write the default configuration to <home>/config.yaml.

The vault passphrase is never written. Supply it through
CUSTODY_VAULT_PASSPHRASE.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// redactedConfig returns a copy of c safe to print.
func redactedConfig(c *config.Config) *config.Config {
	out := *c
	if out.Vault.Passphrase != "" {
		out.Vault.Passphrase = redacted
	}
	if out.Notify.WhatsApp.Token != "" {
		out.Notify.WhatsApp.Token = redacted
	}
	if out.Database.DSN != "" {
		out.Database.DSN = redacted
	}
	return &out
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	view := redactedConfig(cfg)
	return formatter.Render(view, func(w io.Writer) error {
		data, err := yaml.Marshal(view)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	home, err := config.ExpandHome(cfg.Home)
	if err != nil {
		return custodyerr.WithCause(custodyerr.ErrConfiguration, err)
	}
	path := config.Path(home)

	if _, err := os.Stat(path); err == nil && !configForce {
		return custodyerr.WithSuggestion(
			custodyerr.Wrap(custodyerr.ErrInvalidInput, "%s already exists", path),
			"pass --force to overwrite it",
		)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	fresh := config.Defaults()
	fresh.Home = cfg.Home
	if err := config.Save(fresh, path); err != nil {
		return custodyerr.Wrap(err, "writing config")
	}

	formatter.Successf("Wrote %s", path)
	if cfg.Vault.Passphrase == "" {
		formatter.Warnf("Set %s_VAULT_PASSPHRASE before creating wallets", config.EnvPrefix)
	}
	return formatter.Render(map[string]string{"path": path}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, path)
		return err
	})
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
