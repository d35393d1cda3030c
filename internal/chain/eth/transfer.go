package eth

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mrz1836/custody/internal/chain"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// SubmitNativeTransfer signs and broadcasts a value transfer and returns
// the transaction hash. signingKey is zeroed before returning.
func (c *Client) SubmitNativeTransfer(ctx context.Context, signingKey []byte, toAddress string, amount *big.Int) (string, error) {
	defer clear(signingKey)

	if err := validateAddress("to", toAddress); err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", custodyerr.ErrInvalidAmount
	}

	return c.submit(ctx, signingKey, common.HexToAddress(toAddress), amount, nil, GasLimitNativeTransfer)
}

// SubmitTokenTransfer signs and broadcasts an ERC-20 transfer call and
// returns the transaction hash. signingKey is zeroed before returning.
func (c *Client) SubmitTokenTransfer(ctx context.Context, signingKey []byte, toAddress string, amount *big.Int, tokenContract string) (string, error) {
	defer clear(signingKey)

	if err := validateAddress("to", toAddress); err != nil {
		return "", err
	}
	if err := validateAddress("token", tokenContract); err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", custodyerr.ErrInvalidAmount
	}

	data := chain.TransferCalldata(toAddress, amount)
	return c.submit(ctx, signingKey, common.HexToAddress(tokenContract), big.NewInt(0), data, GasLimitTokenTransfer)
}

func (c *Client) submit(ctx context.Context, signingKey []byte, to common.Address, value *big.Int, data []byte, floor uint64) (string, error) {
	key, err := ethcrypto.ToECDSA(signingKey)
	if err != nil {
		return "", custodyerr.Wrap(custodyerr.ErrInvalidInput, "signing key is not a valid secp256k1 key")
	}
	defer key.D.SetInt64(0)

	from := ethcrypto.PubkeyToAddress(key.PublicKey)

	nonce, err := read(ctx, c, func(ec *ethclient.Client) (uint64, error) {
		return ec.PendingNonceAt(ctx, from)
	})
	if err != nil {
		return "", custodyerr.WithCause(custodyerr.ErrChainSubmission, fmt.Errorf("getting nonce: %w", err))
	}

	gasPrice, err := read(ctx, c, func(ec *ethclient.Client) (*big.Int, error) {
		return ec.SuggestGasPrice(ctx)
	})
	if err != nil {
		return "", custodyerr.WithCause(custodyerr.ErrChainSubmission, fmt.Errorf("getting gas price: %w", err))
	}

	gas := c.gasLimit(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}, floor)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.network.ChainID), key)
	if err != nil {
		return "", custodyerr.WithCause(custodyerr.ErrChainSubmission, fmt.Errorf("signing transaction: %w", err))
	}

	if err := c.write(ctx, func(ec *ethclient.Client) error {
		return ec.SendTransaction(ctx, signed)
	}); err != nil {
		return "", err
	}

	return signed.Hash().Hex(), nil
}
