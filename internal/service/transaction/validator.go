package transaction

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/pending"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Asset names the unit a transfer moves on a network.
type Asset struct {
	Symbol   string
	Decimals int
	Contract string // empty for the native asset
}

// AssetFor returns the asset moved by kind on network.
func AssetFor(network chain.Network, kind chain.TransferKind) (Asset, error) {
	switch kind {
	case chain.TransferNative:
		return Asset{Symbol: network.NativeSymbol, Decimals: network.NativeDecimals}, nil
	case chain.TransferToken:
		if !network.HasToken() {
			return Asset{}, custodyerr.WithDetails(custodyerr.ErrUnsupportedNetwork, map[string]string{
				"network": network.ID.String(),
				"reason":  "no token configured",
			})
		}
		return Asset{Symbol: network.Token.Symbol, Decimals: network.Token.Decimals, Contract: network.Token.Address}, nil
	default:
		return Asset{}, custodyerr.WithDetails(custodyerr.ErrInvalidInput, map[string]string{
			"kind": string(kind),
		})
	}
}

// ParseAmount parses a positive decimal amount with at most decimals
// fractional digits.
func ParseAmount(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	invalid := custodyerr.WithDetails(custodyerr.ErrInvalidAmount, map[string]string{"amount": amount})

	if amount == "" || amount == "." {
		return nil, invalid
	}

	dotSeen := false
	fraction := 0
	for _, c := range amount {
		switch {
		case c == '.':
			if dotSeen {
				return nil, invalid
			}
			dotSeen = true
		case c < '0' || c > '9':
			return nil, invalid
		case dotSeen:
			fraction++
		}
	}
	if fraction > decimals {
		return nil, custodyerr.WithDetails(custodyerr.ErrInvalidAmount, map[string]string{
			"amount": amount,
			"reason": fmt.Sprintf("at most %d decimal places", decimals),
		})
	}

	value, err := chain.ParseDecimalAmount(amount, decimals, invalid)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, custodyerr.WithDetails(custodyerr.ErrInvalidAmount, map[string]string{
			"amount": amount,
			"reason": "must be greater than zero",
		})
	}
	return value, nil
}

// ValidatePayload checks a transfer intent against its network and
// returns the amount in the asset's smallest unit.
func ValidatePayload(network chain.Network, p pending.Payload) (Asset, *big.Int, error) {
	asset, err := AssetFor(network, p.Kind)
	if err != nil {
		return Asset{}, nil, err
	}

	amount, err := ParseAmount(p.Amount, asset.Decimals)
	if err != nil {
		return Asset{}, nil, err
	}

	if !chain.IsHexAddress(p.ToAddress) {
		return Asset{}, nil, custodyerr.WithDetails(custodyerr.ErrInvalidAddress, map[string]string{
			"field": "to",
		})
	}
	return asset, amount, nil
}

// checkFunds verifies the sender can pay for the transfer.
//
// Native transfers need amount plus fee. Token transfers need the token
// amount and a native balance covering the larger of the fee and the
// network's reserve.
func checkFunds(ctx context.Context, client chain.BalanceReader, network chain.Network, asset Asset, from string, amount, fee *big.Int) error {
	native, err := client.GetNativeBalance(ctx, from)
	if err != nil {
		return chainError(err)
	}

	if asset.Contract == "" {
		required := new(big.Int).Add(amount, fee)
		if ok, details := chain.CompareDecimal(native, required, network.NativeDecimals); !ok {
			details["symbol"] = network.NativeSymbol
			return custodyerr.WithDetails(custodyerr.ErrInsufficientNativeBalance, details)
		}
		return nil
	}

	tokens, err := client.GetTokenBalance(ctx, from, asset.Contract)
	if err != nil {
		return chainError(err)
	}
	if ok, details := chain.CompareDecimal(tokens, amount, asset.Decimals); !ok {
		details["symbol"] = asset.Symbol
		return custodyerr.WithDetails(custodyerr.ErrInsufficientTokenBalance, details)
	}

	reserve := fee
	if network.MinFeeReserve != nil && network.MinFeeReserve.Cmp(reserve) > 0 {
		reserve = network.MinFeeReserve
	}
	if ok, details := chain.CompareDecimal(native, reserve, network.NativeDecimals); !ok {
		details["symbol"] = network.NativeSymbol
		return custodyerr.WithDetails(custodyerr.ErrInsufficientFee, details)
	}
	return nil
}

// chainError maps chain I/O failures onto ErrChainSubmission, keeping
// validation errors the client already classified.
func chainError(err error) error {
	switch {
	case custodyerr.Is(err, custodyerr.ErrChainSubmission),
		custodyerr.Is(err, custodyerr.ErrInvalidAddress),
		custodyerr.Is(err, custodyerr.ErrInvalidInput):
		return err
	default:
		return custodyerr.WithCause(custodyerr.ErrChainSubmission, err)
	}
}
