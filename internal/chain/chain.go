// Package chain defines the chain client capability the custody engine
// depends on, the static network registry, and shared amount, retry and
// rate-limit helpers.
package chain

import (
	"context"
	"math/big"
)

// TransferKind selects native-asset or token transfer.
type TransferKind string

// Transfer kinds.
const (
	TransferNative TransferKind = "native"
	TransferToken  TransferKind = "token"
)

// IsValid reports whether k is a known transfer kind.
func (k TransferKind) IsValid() bool {
	return k == TransferNative || k == TransferToken
}

// BalanceReader provides balance querying capabilities.
type BalanceReader interface {
	// GetNativeBalance returns the native asset balance in the smallest unit.
	GetNativeBalance(ctx context.Context, address string) (*big.Int, error)

	// GetTokenBalance returns the ERC-20 token balance in the token's smallest unit.
	GetTokenBalance(ctx context.Context, address, tokenContract string) (*big.Int, error)
}

// FeeEstimator provides fee estimation capabilities.
type FeeEstimator interface {
	// EstimateTransferFee returns gas price times gas limit for the transfer.
	EstimateTransferFee(ctx context.Context, req FeeRequest) (*big.Int, error)
}

// TransferSubmitter signs and broadcasts transfers. The signing key is
// zeroed by the implementation once the transaction is signed.
type TransferSubmitter interface {
	SubmitNativeTransfer(ctx context.Context, signingKey []byte, toAddress string, amount *big.Int) (string, error)
	SubmitTokenTransfer(ctx context.Context, signingKey []byte, toAddress string, amount *big.Int, tokenContract string) (string, error)
}

// InclusionWaiter waits for a broadcast transaction to be mined.
type InclusionWaiter interface {
	// AwaitInclusion blocks until the transaction is included in a block and
	// returns that block's number.
	AwaitInclusion(ctx context.Context, txHash string) (uint64, error)
}

// BlockScanner reads blocks for incoming-transfer detection.
type BlockScanner interface {
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	GetBlockTransactions(ctx context.Context, number uint64) ([]BlockTransaction, error)
}

// Client is the full capability of a chain client bound to one network.
type Client interface {
	BalanceReader
	FeeEstimator
	TransferSubmitter
	InclusionWaiter
	BlockScanner

	// Close releases the underlying connection.
	Close()
}

// FeeRequest describes a transfer for fee estimation.
type FeeRequest struct {
	Kind          TransferKind
	From          string
	To            string
	Amount        *big.Int
	TokenContract string
}

// BlockTransaction is the subset of a mined transaction the watcher needs.
type BlockTransaction struct {
	Hash  string
	From  string
	To    string // empty for contract creation
	Value *big.Int
	Input []byte
}
