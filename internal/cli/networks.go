package cli

import (
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/config"
	"github.com/mrz1836/custody/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the configured networks",
	Args:  cobra.NoArgs,
	RunE:  runNetworks,
}

type networkView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ChainID       string `json:"chain_id"`
	Native        string `json:"native"`
	Token         string `json:"token,omitempty"`
	TokenAddress  string `json:"token_address,omitempty"`
	MinFeeReserve string `json:"min_fee_reserve"`
	RPC           string `json:"rpc"`
	Default       bool   `json:"default"`
}

func runNetworks(_ *cobra.Command, _ []string) error {
	registry, err := chain.RegistryFromConfig(cfg.Networks)
	if err != nil {
		return err
	}

	def := selectedNetwork()
	views := make([]networkView, 0, len(registry.IDs()))
	for _, id := range registry.IDs() {
		n, err := registry.Resolve(id)
		if err != nil {
			return err
		}
		v := networkView{
			ID:            string(n.ID),
			Name:          n.Name,
			ChainID:       n.ChainID.String(),
			Native:        n.NativeSymbol,
			MinFeeReserve: chain.FormatDecimalAmount(n.MinFeeReserve, n.NativeDecimals),
			RPC:           endpointHost(n.EndpointURL),
			Default:       n.ID == def,
		}
		if n.HasToken() {
			v.Token = n.Token.Symbol
			v.TokenAddress = n.Token.Address
		}
		views = append(views, v)
	}

	return formatter.Render(views, func(w io.Writer) error {
		tbl := output.NewTable("", "ID", "NAME", "CHAIN", "NATIVE", "TOKEN", "RPC")
		for _, v := range views {
			marker := ""
			if v.Default {
				marker = "*"
			}
			tbl.AddRow(marker, v.ID, v.Name, v.ChainID, v.Native, v.Token, v.RPC)
		}
		return tbl.Render(w)
	})
}

// endpointHost hides the path and query, where providers put API keys.
func endpointHost(raw string) string {
	u, err := url.Parse(config.SanitizeURL(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(networksCmd)
}
