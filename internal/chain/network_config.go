package chain

import (
	"math/big"
	"sort"

	"github.com/mrz1836/custody/internal/config"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// RegistryFromConfig builds a registry from the built-in networks with the
// configured overrides applied. An override for an unknown id adds a new
// network and must then be complete.
func RegistryFromConfig(cfg config.NetworksConfig) (*Registry, error) {
	builtin := DefaultNetworks()
	index := make(map[NetworkID]int, len(builtin))
	for i, n := range builtin {
		index[n.ID] = i
	}

	ids := make([]string, 0, len(cfg.Overrides))
	for id := range cfg.Overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, raw := range ids {
		o := cfg.Overrides[raw]
		id := ParseNetworkID(raw)

		n := Network{ID: id, NativeDecimals: 18}
		i, known := index[id]
		if known {
			n = builtin[i]
		}

		if err := applyOverride(&n, o); err != nil {
			return nil, err
		}

		if known {
			builtin[i] = n
		} else {
			index[id] = len(builtin)
			builtin = append(builtin, n)
		}
	}

	r, err := NewRegistry(builtin...)
	if err != nil {
		return nil, err
	}

	if cfg.Default != "" && !r.Has(ParseNetworkID(cfg.Default)) {
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "default network %q is not registered", cfg.Default)
	}
	return r, nil
}

func applyOverride(n *Network, o config.NetworkConfig) error {
	if o.Name != "" {
		n.Name = o.Name
	}
	if o.RPC != "" {
		n.EndpointURL = o.RPC
	}
	if o.ChainID > 0 {
		n.ChainID = big.NewInt(o.ChainID)
	}
	if o.NativeSymbol != "" {
		n.NativeSymbol = o.NativeSymbol
	}
	if o.MinFeeReserve != "" {
		reserve, err := ParseDecimalAmount(o.MinFeeReserve, n.NativeDecimals, custodyerr.ErrConfiguration)
		if err != nil {
			return custodyerr.Wrap(err, "network %q min_fee_reserve", n.ID)
		}
		n.MinFeeReserve = reserve
	}
	if o.Token != nil {
		if !IsHexAddress(o.Token.Address) {
			return custodyerr.Wrap(custodyerr.ErrConfiguration, "network %q token address is invalid", n.ID)
		}
		n.Token = Token{
			Symbol:   o.Token.Symbol,
			Address:  o.Token.Address,
			Decimals: o.Token.Decimals,
		}
	}
	return nil
}
