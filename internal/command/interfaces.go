package command

import (
	"context"

	"github.com/mrz1836/custody/internal/account"
	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/pending"
	"github.com/mrz1836/custody/internal/service/balance"
	"github.com/mrz1836/custody/internal/service/transaction"
	"github.com/mrz1836/custody/internal/service/wallet"
)

// Engine stages, confirms and reads.
// Satisfied by *custody.Engine.
type Engine interface {
	CreatePendingSend(ctx context.Context, origin, fromEncryptedKey, toAddress, amount string,
		network chain.NetworkID, recipientHandle string) (pending.Ticket, error)
	CreatePendingNativeSend(ctx context.Context, origin, fromEncryptedKey, toAddress, amount string,
		network chain.NetworkID, recipientHandle string) (pending.Ticket, error)
	ConfirmPending(ctx context.Context, origin, code string) (transaction.Result, error)
	GetBalance(ctx context.Context, identifierOrAddress string, network chain.NetworkID) (*balance.Balance, error)
}

// Wallets resolves and registers senders.
// Satisfied by *wallet.Service.
type Wallets interface {
	ResolveIdentifier(ctx context.Context, identifier string) (wallet.Resolution, error)
	Register(ctx context.Context, identifier string) (*account.Account, *wallet.CreatedWallet, error)
}

// NetworkResolver maps a network id to its descriptor.
type NetworkResolver interface {
	Resolve(id chain.NetworkID) (chain.Network, error)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
