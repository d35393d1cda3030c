// Package custody is the confirmation engine: transfers are staged with a
// one-time code and only executed when the same origin confirms it.
package custody

import (
	"context"
	"strings"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/pending"
	"github.com/mrz1836/custody/internal/service/balance"
	"github.com/mrz1836/custody/internal/service/transaction"
	"github.com/mrz1836/custody/internal/service/wallet"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Config holds the engine's collaborators. Networks, Pending, Executor,
// Wallets and Balances are required.
type Config struct {
	Networks NetworkResolver
	Pending  PendingStore
	Executor Executor
	Wallets  Wallets
	Balances Balances
	Metrics  Recorder
	Logger   LogWriter
}

// Engine exposes the custody operations.
type Engine struct {
	networks NetworkResolver
	pending  PendingStore
	executor Executor
	wallets  Wallets
	balances Balances
	metrics  Recorder
	logger   LogWriter
}

// SendRequest describes a transfer to stage.
type SendRequest struct {
	Origin string
	Kind   chain.TransferKind

	// FromSecret is the sender's vault-encrypted private key.
	FromSecret  string
	FromAddress string
	ToAddress   string
	Amount      string
	Network     chain.NetworkID

	// RecipientHandle is told about the transfer once it lands.
	RecipientHandle string
}

// New validates cfg and builds an engine.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil || cfg.Networks == nil || cfg.Pending == nil || cfg.Executor == nil ||
		cfg.Wallets == nil || cfg.Balances == nil {
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "engine is missing a dependency")
	}

	e := &Engine{
		networks: cfg.Networks,
		pending:  cfg.Pending,
		executor: cfg.Executor,
		wallets:  cfg.Wallets,
		balances: cfg.Balances,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if e.metrics == nil {
		e.metrics = nopRecorder{}
	}
	if e.logger == nil {
		e.logger = nopLogger{}
	}
	return e, nil
}

// Start runs the pending store's expiry sweeper.
func (e *Engine) Start() {
	e.pending.Start()
}

// Stop halts the sweeper. Pending entries are dropped with the process.
func (e *Engine) Stop() {
	e.pending.Stop()
}

// PendingCount returns the number of live pending entries.
func (e *Engine) PendingCount() int {
	return e.pending.Len()
}

// CreatePendingSend stages a token transfer and returns the ticket whose
// code the origin must send back.
func (e *Engine) CreatePendingSend(ctx context.Context, origin, fromEncryptedKey, toAddress, amount string,
	network chain.NetworkID, recipientHandle string,
) (pending.Ticket, error) {
	return e.Stage(ctx, SendRequest{
		Origin:          origin,
		Kind:            chain.TransferToken,
		FromSecret:      fromEncryptedKey,
		ToAddress:       toAddress,
		Amount:          amount,
		Network:         network,
		RecipientHandle: recipientHandle,
	})
}

// CreatePendingNativeSend stages a native-asset transfer.
func (e *Engine) CreatePendingNativeSend(ctx context.Context, origin, fromEncryptedKey, toAddress, amount string,
	network chain.NetworkID, recipientHandle string,
) (pending.Ticket, error) {
	return e.Stage(ctx, SendRequest{
		Origin:          origin,
		Kind:            chain.TransferNative,
		FromSecret:      fromEncryptedKey,
		ToAddress:       toAddress,
		Amount:          amount,
		Network:         network,
		RecipientHandle: recipientHandle,
	})
}

// Stage validates req and stores it until confirmed or expired. The
// network must be named explicitly.
func (e *Engine) Stage(_ context.Context, req SendRequest) (pending.Ticket, error) {
	if strings.TrimSpace(req.Network.String()) == "" {
		return pending.Ticket{}, custodyerr.Wrap(custodyerr.ErrInvalidInput, "network is required")
	}
	if req.FromSecret == "" {
		return pending.Ticket{}, custodyerr.Wrap(custodyerr.ErrInvalidInput, "sender key is required")
	}

	network, err := e.networks.Resolve(req.Network)
	if err != nil {
		return pending.Ticket{}, err
	}

	payload := pending.Payload{
		Kind:         req.Kind,
		FromSecret:   req.FromSecret,
		FromAddress:  req.FromAddress,
		ToAddress:    strings.TrimSpace(req.ToAddress),
		Amount:       strings.TrimSpace(req.Amount),
		Network:      network.ID,
		NotifyTarget: req.RecipientHandle,
	}
	if _, _, err := transaction.ValidatePayload(network, payload); err != nil {
		return pending.Ticket{}, err
	}

	ticket, err := e.pending.Create(req.Origin, payload)
	if err != nil {
		return pending.Ticket{}, err
	}

	e.metrics.RecordPendingCreated(network.ID.String(), string(req.Kind))
	e.logger.Debug("staged %s transfer %s on %s", req.Kind, ticket.ID, network.ID)
	return ticket, nil
}

// ConfirmPending consumes the entry matching origin and code and executes
// it. A missing, expired or already used code fails with
// ErrNoMatchingTransaction; every later failure is in the Result.
func (e *Engine) ConfirmPending(ctx context.Context, origin, code string) (transaction.Result, error) {
	tx, err := e.pending.Confirm(origin, strings.TrimSpace(code))
	e.metrics.RecordConfirmation(err == nil)
	if err != nil {
		return transaction.Result{}, err
	}

	e.logger.Debug("executing confirmed transfer %s", tx.ID)
	return e.executor.Execute(ctx, tx.Payload), nil
}

// GetBalance returns the balances of an identifier or address.
func (e *Engine) GetBalance(ctx context.Context, identifierOrAddress string, network chain.NetworkID) (*balance.Balance, error) {
	return e.balances.GetBalance(ctx, identifierOrAddress, network)
}

// CreateWallet creates an unregistered wallet.
func (e *Engine) CreateWallet() (*wallet.CreatedWallet, error) {
	return e.wallets.CreateWallet()
}
