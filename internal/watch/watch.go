// Package watch polls a network for transfers arriving at an address.
package watch

import (
	"context"
	"math/big"
	"time"

	"github.com/lightningnetwork/lnd/ticker"

	"github.com/mrz1836/custody/internal/chain"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const (
	// DefaultWindow is how long Watch runs when no duration is given.
	DefaultWindow = 60 * time.Second

	// DefaultPollInterval is how often the head block is checked.
	DefaultPollInterval = 3 * time.Second
)

// Incoming is a transfer received by the watched address.
type Incoming struct {
	TxHash string
	Block  uint64
	From   string
	Amount string
	Raw    *big.Int
	Symbol string
}

// Handler is called once per incoming transfer.
type Handler func(Incoming)

// NetworkResolver maps a network id to its descriptor.
type NetworkResolver interface {
	Resolve(id chain.NetworkID) (chain.Network, error)
}

// Recorder receives watcher metrics.
// Satisfied by *metrics.Metrics.
type Recorder interface {
	RecordIncoming(network, symbol string)
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

func (nopRecorder) RecordIncoming(string, string) {}

// Config holds watcher dependencies.
type Config struct {
	Networks     NetworkResolver
	Clients      chain.Provider
	PollInterval time.Duration

	// NewTicker builds the poll ticker for one Watch call. Defaults to
	// ticker.New.
	NewTicker func(interval time.Duration) ticker.Ticker

	Metrics Recorder
	Logger  LogWriter
}

// Watcher scans new blocks for incoming transfers.
type Watcher struct {
	networks NetworkResolver
	clients  chain.Provider
	interval  time.Duration
	newTicker func(time.Duration) ticker.Ticker
	metrics   Recorder
	logger   LogWriter
}

// New creates a watcher.
func New(cfg *Config) *Watcher {
	w := &Watcher{
		networks:  cfg.Networks,
		clients:   cfg.Clients,
		interval:  cfg.PollInterval,
		newTicker: cfg.NewTicker,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
	if w.interval <= 0 {
		w.interval = DefaultPollInterval
	}
	if w.newTicker == nil {
		w.newTicker = func(d time.Duration) ticker.Ticker { return ticker.New(d) }
	}
	if w.metrics == nil {
		w.metrics = nopRecorder{}
	}
	if w.logger == nil {
		w.logger = nopLogger{}
	}
	return w
}

// Watch scans every block mined after the call starts until duration
// elapses, calling handle for each native or token transfer to address.
// It returns the number of transfers seen. An elapsed window is not an
// error; a canceled ctx is.
//
//nolint:gocognit // poll loop
func (w *Watcher) Watch(ctx context.Context, address string, network chain.NetworkID, duration time.Duration, handle Handler) (int, error) {
	if !chain.IsHexAddress(address) {
		return 0, custodyerr.WithDetails(custodyerr.ErrInvalidAddress, map[string]string{"field": "address"})
	}
	if duration <= 0 {
		duration = DefaultWindow
	}

	n, err := w.networks.Resolve(network)
	if err != nil {
		return 0, err
	}
	client, err := w.clients.ClientFor(ctx, n)
	if err != nil {
		return 0, err
	}

	last, err := client.GetLatestBlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	// each call owns its ticker, so concurrent watches never share one
	t := w.newTicker(w.interval)
	t.Resume()
	defer t.Stop()

	windowCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	seen := 0
	for {
		select {
		case <-t.Ticks():
			head, err := client.GetLatestBlockNumber(windowCtx)
			if err != nil {
				w.logger.Error("watch %s: reading head: %v", n.ID, err)
				continue
			}
			for b := last + 1; b <= head; b++ {
				txs, err := client.GetBlockTransactions(windowCtx, b)
				if err != nil {
					w.logger.Error("watch %s: reading block %d: %v", n.ID, b, err)
					break
				}
				for _, tx := range txs {
					in, ok := Match(n, address, tx)
					if !ok {
						continue
					}
					in.Block = b
					seen++
					w.metrics.RecordIncoming(n.ID.String(), in.Symbol)
					handle(in)
				}
				last = b
			}

		case <-windowCtx.Done():
			return seen, ctx.Err()
		}
	}
}

// Match reports whether tx moves funds to address on network: either a
// native transfer or a call to the network token's transfer method.
func Match(n chain.Network, address string, tx chain.BlockTransaction) (Incoming, bool) {
	if tx.To == "" {
		return Incoming{}, false
	}

	if chain.SameAddress(tx.To, address) && tx.Value != nil && tx.Value.Sign() > 0 {
		return Incoming{
			TxHash: tx.Hash,
			From:   tx.From,
			Amount: chain.FormatDecimalAmount(tx.Value, n.NativeDecimals),
			Raw:    tx.Value,
			Symbol: n.NativeSymbol,
		}, true
	}

	if !n.HasToken() || !chain.SameAddress(tx.To, n.Token.Address) {
		return Incoming{}, false
	}
	to, amount, ok := chain.ParseTransferCalldata(tx.Input)
	if !ok || !chain.SameAddress(to, address) || amount.Sign() == 0 {
		return Incoming{}, false
	}
	return Incoming{
		TxHash: tx.Hash,
		From:   tx.From,
		Amount: chain.FormatDecimalAmount(amount, n.Token.Decimals),
		Raw:    amount,
		Symbol: n.Token.Symbol,
	}, true
}
