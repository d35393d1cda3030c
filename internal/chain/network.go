package chain

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// NetworkID is the logical name selecting a network descriptor.
type NetworkID string

// Built-in network identifiers.
const (
	BSC        NetworkID = "bsc"
	BSCTestnet NetworkID = "bsc-testnet"
	Base       NetworkID = "base"
	Ethereum   NetworkID = "eth"
)

// String returns the identifier string.
func (id NetworkID) String() string {
	return string(id)
}

// ParseNetworkID normalizes s into a NetworkID.
func ParseNetworkID(s string) NetworkID {
	return NetworkID(strings.ToLower(strings.TrimSpace(s)))
}

// Token describes the single ERC-20 token handled on a network.
type Token struct {
	Symbol   string
	Address  string
	Decimals int
}

// Network is an immutable network descriptor.
type Network struct {
	ID             NetworkID
	Name           string
	EndpointURL    string
	ChainID        *big.Int
	NativeSymbol   string
	NativeDecimals int
	Token          Token

	// MinFeeReserve is the native balance, in wei, a sender must hold
	// before a token transfer is attempted.
	MinFeeReserve *big.Int
}

// HasToken reports whether a token is configured.
func (n Network) HasToken() bool {
	return n.Token.Address != ""
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("chain: bad constant " + s)
	}
	return v
}

// DefaultNetworks returns the built-in network descriptors.
func DefaultNetworks() []Network {
	// 0.001 of an 18-decimal native asset
	reserve := "1000000000000000"

	return []Network{
		{
			ID:             BSC,
			Name:           "BNB Smart Chain",
			EndpointURL:    "https://bsc-dataseed.binance.org",
			ChainID:        big.NewInt(56),
			NativeSymbol:   "BNB",
			NativeDecimals: 18,
			Token: Token{
				Symbol:   "USDT",
				Address:  "0x55d398326f99059fF775485246999027B3197955",
				Decimals: 18,
			},
			MinFeeReserve: mustBig(reserve),
		},
		{
			ID:             BSCTestnet,
			Name:           "BNB Smart Chain Testnet",
			EndpointURL:    "https://data-seed-prebsc-1-s1.binance.org:8545",
			ChainID:        big.NewInt(97),
			NativeSymbol:   "tBNB",
			NativeDecimals: 18,
			Token: Token{
				Symbol:   "USDT",
				Address:  "0x337610d27c682E347C9cD60BD4b3b107C9d34dDd",
				Decimals: 18,
			},
			MinFeeReserve: mustBig(reserve),
		},
		{
			ID:             Base,
			Name:           "Base",
			EndpointURL:    "https://mainnet.base.org",
			ChainID:        big.NewInt(8453),
			NativeSymbol:   "ETH",
			NativeDecimals: 18,
			Token: Token{
				Symbol:   "USDC",
				Address:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
				Decimals: 6,
			},
			MinFeeReserve: big.NewInt(0),
		},
		{
			ID:             Ethereum,
			Name:           "Ethereum",
			EndpointURL:    "https://ethereum-rpc.publicnode.com",
			ChainID:        big.NewInt(1),
			NativeSymbol:   "ETH",
			NativeDecimals: 18,
			Token: Token{
				Symbol:   "USDT",
				Address:  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
				Decimals: 6,
			},
			MinFeeReserve: big.NewInt(0),
		},
	}
}

// Registry maps network identifiers to descriptors. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	networks map[NetworkID]Network
}

// NewRegistry validates and indexes the given networks.
func NewRegistry(networks ...Network) (*Registry, error) {
	r := &Registry{networks: make(map[NetworkID]Network, len(networks))}

	for _, n := range networks {
		if n.ID == "" {
			return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "network id is empty")
		}
		if _, dup := r.networks[n.ID]; dup {
			return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "duplicate network %q", n.ID)
		}
		if n.EndpointURL == "" {
			return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "network %q has no endpoint", n.ID)
		}
		if n.ChainID == nil || n.ChainID.Sign() <= 0 {
			return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "network %q has no chain id", n.ID)
		}
		if n.NativeDecimals == 0 {
			n.NativeDecimals = 18
		}
		if n.MinFeeReserve == nil {
			n.MinFeeReserve = big.NewInt(0)
		}
		r.networks[n.ID] = n
	}

	return r, nil
}

// Resolve returns the descriptor for id. Unknown or empty ids fail with
// ErrUnsupportedNetwork; there is no fallback network.
func (r *Registry) Resolve(id NetworkID) (Network, error) {
	n, ok := r.networks[id]
	if !ok {
		return Network{}, custodyerr.WithDetails(custodyerr.ErrUnsupportedNetwork,
			map[string]string{"network": fmt.Sprintf("%q", id)})
	}
	return n, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id NetworkID) bool {
	_, ok := r.networks[id]
	return ok
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []NetworkID {
	ids := make([]NetworkID, 0, len(r.networks))
	for id := range r.networks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
