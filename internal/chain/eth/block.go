package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/mrz1836/custody/internal/chain"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// receipt and rpcBlock decode only the fields the engine reads, so that
// nodes returning chain-specific extras still parse.
type receipt struct {
	BlockNumber *hexutil.Big    `json:"blockNumber"`
	Status      *hexutil.Uint64 `json:"status"`
}

type rpcTransaction struct {
	Hash  string        `json:"hash"`
	From  string        `json:"from"`
	To    *string       `json:"to"`
	Value *hexutil.Big  `json:"value"`
	Input hexutil.Bytes `json:"input"`
}

type rpcBlock struct {
	Transactions []rpcTransaction `json:"transactions"`
}

func validTxHash(hash string) bool {
	if len(hash) != 66 || !strings.HasPrefix(hash, "0x") {
		return false
	}
	_, err := hexutil.Decode(hash)
	return err == nil
}

// AwaitInclusion polls for the transaction receipt until it is mined or
// ctx ends. A reverted transaction is reported as ErrChainSubmission.
func (c *Client) AwaitInclusion(ctx context.Context, txHash string) (uint64, error) {
	if !validTxHash(txHash) {
		return 0, custodyerr.Wrap(custodyerr.ErrInvalidInput, "malformed transaction hash")
	}

	t := ticker.New(c.opts.PollInterval)
	t.Resume()
	defer t.Stop()

	for {
		r, err := read(ctx, c, func(ec *ethclient.Client) (*receipt, error) {
			var r *receipt
			err := ec.Client().CallContext(ctx, &r, "eth_getTransactionReceipt", txHash)
			return r, err
		})
		if err != nil {
			return 0, custodyerr.WithCause(custodyerr.ErrChainSubmission, fmt.Errorf("getting receipt: %w", err))
		}

		if r != nil && r.BlockNumber != nil {
			if r.Status != nil && *r.Status == 0 {
				return 0, custodyerr.WithDetails(custodyerr.ErrChainSubmission, map[string]string{
					"reason": "transaction reverted",
				})
			}
			return r.BlockNumber.ToInt().Uint64(), nil
		}

		select {
		case <-ctx.Done():
			return 0, custodyerr.WithCause(custodyerr.ErrChainSubmission, ctx.Err())
		case <-t.Ticks():
		}
	}
}

// GetBlockTransactions returns the transactions mined in block number.
func (c *Client) GetBlockTransactions(ctx context.Context, number uint64) ([]chain.BlockTransaction, error) {
	blk, err := read(ctx, c, func(ec *ethclient.Client) (*rpcBlock, error) {
		var b *rpcBlock
		err := ec.Client().CallContext(ctx, &b, "eth_getBlockByNumber", hexutil.EncodeUint64(number), true)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting block %d: %w", number, err)
	}
	if blk == nil {
		return nil, fmt.Errorf("block %d: %w", number, ethereum.NotFound)
	}

	txs := make([]chain.BlockTransaction, 0, len(blk.Transactions))
	for _, tx := range blk.Transactions {
		bt := chain.BlockTransaction{
			Hash:  tx.Hash,
			From:  chain.ChecksumAddress(tx.From),
			Value: big.NewInt(0),
			Input: tx.Input,
		}
		if tx.To != nil {
			bt.To = chain.ChecksumAddress(*tx.To)
		}
		if tx.Value != nil {
			bt.Value = tx.Value.ToInt()
		}
		txs = append(txs, bt)
	}
	return txs, nil
}
