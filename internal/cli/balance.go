package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance <identifier|address>",
	Short: "Show the token and native balance",
	Long: `Show the token and native coin balance of a registered identifier
or of any 0x address on the selected network.`,
	Example: `  custody balance +2348012345678
  custody balance 0x742d35Cc6634C0532925a3b844Bc9e7595f8b2E0 --network base`,
	Args: cobra.ExactArgs(1),
	RunE: runBalance,
}

func runBalance(cmd *cobra.Command, args []string) error {
	sys, err := openSystem(cmd, nil)
	if err != nil {
		return err
	}
	defer sys.Close()

	bal, err := sys.Engine.GetBalance(cmd.Context(), args[0], selectedNetwork())
	if err != nil {
		return err
	}

	return formatter.Render(bal, func(w io.Writer) error {
		_, _ = fmt.Fprintf(w, "📍 %s (%s)\n", bal.Address, bal.Network)
		if bal.Token != nil {
			_, _ = fmt.Fprintf(w, "💰 %s %s\n", bal.Token.Amount, bal.Token.Symbol)
		}
		_, err := fmt.Fprintf(w, "⛽ %s %s\n", bal.Native.Amount, bal.Native.Symbol)
		return err
	})
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(balanceCmd)
}
