package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custody/internal/watch"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var watchDuration time.Duration

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var watchCmd = &cobra.Command{
	Use:   "watch <identifier|address>",
	Short: "Print incoming transfers as new blocks arrive",
	Long: `Poll the selected network for new blocks and print every native or
token transfer received by the address until the duration elapses.

In JSON mode each transfer is printed as one JSON object per line.`,
	Example: `  custody watch +2348012345678
  custody watch 0x742d35Cc6634C0532925a3b844Bc9e7595f8b2E0 --duration 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

type incomingView struct {
	TxHash string `json:"tx_hash"`
	Block  uint64 `json:"block"`
	From   string `json:"from"`
	Amount string `json:"amount"`
	Symbol string `json:"symbol"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	sys, err := openSystem(cmd, nil)
	if err != nil {
		return err
	}
	defer sys.Close()

	res, err := sys.Wallets.ResolveIdentifier(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	network := selectedNetwork()
	formatter.Warnf("Watching %s on %s for %s", res.Address, network, watchDuration)

	w := formatter.Writer()
	enc := json.NewEncoder(w)
	seen, err := sys.Watcher.Watch(cmd.Context(), res.Address, network, watchDuration, func(in watch.Incoming) {
		if formatter.IsJSON() {
			_ = enc.Encode(incomingView{
				TxHash: in.TxHash, Block: in.Block, From: in.From, Amount: in.Amount, Symbol: in.Symbol,
			})
			return
		}
		_, _ = fmt.Fprintf(w, "💰 +%s %s from %s (block %d, tx %s)\n", in.Amount, in.Symbol, in.From, in.Block, in.TxHash)
	})
	if err != nil {
		return err
	}

	formatter.Successf("%d incoming transfer(s)", seen)
	return nil
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	watchCmd.Flags().DurationVar(&watchDuration, "duration", watch.DefaultWindow, "how long to watch")
	rootCmd.AddCommand(watchCmd)
}
