package eth

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mrz1836/custody/internal/chain"
)

// GetTokenBalance returns the ERC-20 balance of address via balanceOf.
func (c *Client) GetTokenBalance(ctx context.Context, address, tokenContract string) (*big.Int, error) {
	if err := validateAddress("address", address); err != nil {
		return nil, err
	}
	if err := validateAddress("token", tokenContract); err != nil {
		return nil, err
	}

	token := common.HexToAddress(tokenContract)
	msg := ethereum.CallMsg{
		To:   &token,
		Data: chain.BalanceOfCalldata(address),
	}

	result, err := read(ctx, c, func(ec *ethclient.Client) ([]byte, error) {
		return ec.CallContract(ctx, msg, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("calling balanceOf: %w", err)
	}

	// result is a single big-endian uint256 word
	if len(result) < 32 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(result[:32]), nil
}

// EstimateTransferFee returns gas price times gas limit for req.
func (c *Client) EstimateTransferFee(ctx context.Context, req chain.FeeRequest) (*big.Int, error) {
	if err := validateAddress("from", req.From); err != nil {
		return nil, err
	}
	if err := validateAddress("to", req.To); err != nil {
		return nil, err
	}

	msg, floor, err := transferCall(req)
	if err != nil {
		return nil, err
	}

	gasPrice, err := read(ctx, c, func(ec *ethclient.Client) (*big.Int, error) {
		return ec.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}

	gas := c.gasLimit(ctx, msg, floor)
	return new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gas)), nil
}

// transferCall builds the call message a transfer would execute and the
// minimum gas limit for its kind.
func transferCall(req chain.FeeRequest) (ethereum.CallMsg, uint64, error) {
	amount := req.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	from := common.HexToAddress(req.From)

	switch req.Kind {
	case chain.TransferNative:
		to := common.HexToAddress(req.To)
		return ethereum.CallMsg{From: from, To: &to, Value: amount}, GasLimitNativeTransfer, nil
	case chain.TransferToken:
		if err := validateAddress("token", req.TokenContract); err != nil {
			return ethereum.CallMsg{}, 0, err
		}
		token := common.HexToAddress(req.TokenContract)
		return ethereum.CallMsg{
			From: from,
			To:   &token,
			Data: chain.TransferCalldata(req.To, amount),
		}, GasLimitTokenTransfer, nil
	default:
		return ethereum.CallMsg{}, 0, fmt.Errorf("unknown transfer kind %q", req.Kind)
	}
}

// gasLimit asks the node for an estimate and never goes below floor.
// Estimation failures fall back to floor.
func (c *Client) gasLimit(ctx context.Context, msg ethereum.CallMsg, floor uint64) uint64 {
	ec, err := c.connect(ctx)
	if err != nil {
		return floor
	}
	if err := c.opts.Limiter.Wait(ctx, c.network.EndpointURL); err != nil {
		return floor
	}
	gas, err := ec.EstimateGas(ctx, msg)
	if err != nil || gas < floor {
		return floor
	}
	return gas
}
