package custody

import (
	"context"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/pending"
	"github.com/mrz1836/custody/internal/service/balance"
	"github.com/mrz1836/custody/internal/service/transaction"
	"github.com/mrz1836/custody/internal/service/wallet"
)

// NetworkResolver maps a network id to its descriptor.
type NetworkResolver interface {
	Resolve(id chain.NetworkID) (chain.Network, error)
}

// PendingStore stages and consumes transfer intents.
// Satisfied by *pending.Store.
type PendingStore interface {
	Create(origin string, payload pending.Payload) (pending.Ticket, error)
	Confirm(origin, code string) (*pending.PendingTransaction, error)
	Len() int
	Start()
	Stop()
}

// Executor runs a confirmed intent.
// Satisfied by *transaction.Service.
type Executor interface {
	Execute(ctx context.Context, p pending.Payload) transaction.Result
}

// Wallets creates wallets.
// Satisfied by *wallet.Service.
type Wallets interface {
	CreateWallet() (*wallet.CreatedWallet, error)
}

// Balances reads balances.
// Satisfied by *balance.Service.
type Balances interface {
	GetBalance(ctx context.Context, identifierOrAddress string, network chain.NetworkID) (*balance.Balance, error)
}

// Recorder receives engine metrics.
// Satisfied by *metrics.Metrics.
type Recorder interface {
	RecordPendingCreated(network, kind string)
	RecordConfirmation(matched bool)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) RecordPendingCreated(string, string) {}
func (nopRecorder) RecordConfirmation(bool)             {}
