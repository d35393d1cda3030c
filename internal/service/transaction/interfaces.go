// Package transaction executes confirmed transfer intents against the
// chain and folds every outcome into a Result.
package transaction

import (
	"context"
	"time"

	"github.com/mrz1836/custody/internal/chain"
)

// Vault decrypts the sender's stored private key.
// Satisfied by *crypto.Vault.
type Vault interface {
	DecryptString(secret string) (string, error)
}

// NetworkResolver maps a network id to its descriptor.
// Satisfied by *chain.Registry.
type NetworkResolver interface {
	Resolve(id chain.NetworkID) (chain.Network, error)
}

// Notifier delivers a text message to a handle.
// Satisfied by notify.Channel implementations.
type Notifier interface {
	Send(ctx context.Context, to, text string) error
}

// Recorder receives executor metrics.
// Satisfied by *metrics.Metrics.
type Recorder interface {
	ObserveTransfer(network, kind, outcome, reason string, elapsed time.Duration)
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

func (nopRecorder) ObserveTransfer(string, string, string, string, time.Duration) {}
