// Package pending holds staged transfer intents until their owner confirms
// them with a one-time code or they expire.
package pending

import (
	"time"

	"github.com/mrz1836/custody/internal/chain"
)

// Status is the lifecycle state of a pending transaction.
type Status string

// Pending transaction states.
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

// Payload is the transfer intent staged for confirmation.
type Payload struct {
	Kind chain.TransferKind

	// FromSecret is the sender's encrypted private key.
	FromSecret  string
	FromAddress string
	ToAddress   string

	// Amount is a decimal string in the asset's display units.
	Amount  string
	Network chain.NetworkID

	// NotifyTarget is the recipient handle told about a successful transfer.
	NotifyTarget string
}

// PendingTransaction is a staged intent awaiting confirmation.
type PendingTransaction struct {
	ID        string
	Origin    string
	Code      string
	Payload   Payload
	CreatedAt time.Time
	ExpiresAt time.Time
	Status    Status
}

// Ticket is what Create hands back to the caller.
type Ticket struct {
	ID        string
	Code      string
	ExpiresAt time.Time
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
