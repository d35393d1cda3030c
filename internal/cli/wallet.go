package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custody/internal/crypto"
	"github.com/mrz1836/custody/internal/fileutil"
	"github.com/mrz1836/custody/internal/output"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	walletQRPath     string
	walletShowSecret bool
	backupOutPath    string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Create, register and back up custodial wallets",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a wallet without storing it",
	Long: `Generate a new BIP-39 mnemonic and the EVM address derived from it.

The wallet is not stored. Write the mnemonic down before closing the
terminal; it is the only way to recover the funds.`,
	Example: `  custody wallet create
  custody wallet create --qr address.png`,
	Args: cobra.NoArgs,
	RunE: runWalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRegisterCmd = &cobra.Command{
	Use:     "register <identifier>",
	Short:   "Create and store a wallet for an identifier",
	Example: `  custody wallet register +2348012345678`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletRegister,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletBackupCmd = &cobra.Command{
	Use:   "backup <identifier>",
	Short: "Export a password-protected mnemonic backup",
	Long: `Export the mnemonic of a registered identifier as an age-armored file
sealed with a password you choose. The password is prompted twice.`,
	Example: `  custody wallet backup +2348012345678 --out alice.age`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletBackup,
}

type walletView struct {
	Identifier string `json:"identifier,omitempty"`
	Address    string `json:"address"`
	Network    string `json:"network,omitempty"`
	Mnemonic   string `json:"mnemonic,omitempty"`
	QRFile     string `json:"qr_file,omitempty"`
}

func runWalletCreate(cmd *cobra.Command, _ []string) error {
	sys, err := openSystem(cmd, nil)
	if err != nil {
		return err
	}
	defer sys.Close()

	created, err := sys.Wallets.CreateWallet()
	if err != nil {
		return err
	}

	view := walletView{Address: created.Address, Mnemonic: created.Mnemonic}
	if walletQRPath != "" {
		if err := output.WriteQRFile(walletQRPath, created.QRCodePNG); err != nil {
			return err
		}
		view.QRFile = walletQRPath
	}

	err = formatter.Render(view, func(w io.Writer) error {
		_, _ = fmt.Fprintf(w, "📍 Address: %s\n\n", view.Address)
		_, _ = fmt.Fprintln(w, "🔑 Recovery phrase (write it down, it will not be shown again):")
		_, err := fmt.Fprintf(w, "   %s\n", view.Mnemonic)
		return err
	})
	if err != nil {
		return err
	}

	if !formatter.IsJSON() {
		output.RenderAddressQR(formatter.Writer(), created.Address)
	}
	if view.QRFile != "" {
		formatter.Successf("QR code written to %s", view.QRFile)
	}
	return nil
}

func runWalletRegister(cmd *cobra.Command, args []string) error {
	sys, err := openSystem(cmd, nil)
	if err != nil {
		return err
	}
	defer sys.Close()

	network, err := sys.Networks.Resolve(selectedNetwork())
	if err != nil {
		return err
	}

	acct, created, err := sys.Wallets.Register(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	view := walletView{
		Identifier: acct.Identifier,
		Address:    acct.Address,
		Network:    string(network.ID),
	}
	if walletShowSecret {
		view.Mnemonic = created.Mnemonic
	}

	return formatter.Render(view, func(w io.Writer) error {
		_, _ = fmt.Fprintf(w, "🎉 Registered %s\n", view.Identifier)
		_, _ = fmt.Fprintf(w, "📍 Address: %s\n", view.Address)
		_, err := fmt.Fprintf(w, "🌐 Network: %s\n", network.Name)
		if err == nil && view.Mnemonic != "" {
			_, err = fmt.Fprintf(w, "🔑 Recovery phrase: %s\n", view.Mnemonic)
		}
		return err
	})
}

func runWalletBackup(cmd *cobra.Command, args []string) error {
	if backupOutPath == "" {
		return custodyerr.WithSuggestion(
			custodyerr.Wrap(custodyerr.ErrInvalidInput, "no output file"),
			"pass --out <file>",
		)
	}

	sys, err := openSystem(cmd, nil)
	if err != nil {
		return err
	}
	defer sys.Close()

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(password)

	armored, err := sys.Wallets.ExportBackup(cmd.Context(), args[0], string(password))
	if err != nil {
		return err
	}

	if err := fileutil.WriteAtomic(backupOutPath, armored, 0o600); err != nil {
		return custodyerr.Wrap(err, "writing backup")
	}

	formatter.Successf("Backup for %s written to %s", args[0], backupOutPath)
	return nil
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCreateCmd.Flags().StringVar(&walletQRPath, "qr", "", "also write the address QR code as a PNG file")
	walletRegisterCmd.Flags().BoolVar(&walletShowSecret, "show-mnemonic", false, "print the recovery phrase")
	walletBackupCmd.Flags().StringVar(&backupOutPath, "out", "", "backup file to write")

	walletCmd.AddCommand(walletCreateCmd, walletRegisterCmd, walletBackupCmd)
	rootCmd.AddCommand(walletCmd)
}
