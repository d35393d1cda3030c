package balance

import (
	"math/big"

	"github.com/mrz1836/custody/internal/chain"
)

// Amount is a balance in one asset.
type Amount struct {
	Symbol string `json:"symbol"`

	// Amount is the decimal display value.
	Amount string `json:"amount"`

	Raw *big.Int `json:"-"`
}

// Balance is the result of GetBalance.
type Balance struct {
	Address string          `json:"address"`
	Network chain.NetworkID `json:"network"`
	Native  Amount          `json:"native"`

	// Token is nil when the network has no token configured.
	Token *Amount `json:"token,omitempty"`
}
