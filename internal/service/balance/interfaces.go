// Package balance reads the native and token balances of an identifier
// or address on one network.
package balance

import (
	"context"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/service/wallet"
)

// IdentifierResolver maps an identifier or address to an address.
// Satisfied by *wallet.Service.
type IdentifierResolver interface {
	ResolveIdentifier(ctx context.Context, identifier string) (wallet.Resolution, error)
}

// NetworkResolver maps a network id to its descriptor.
// Satisfied by *chain.Registry.
type NetworkResolver interface {
	Resolve(id chain.NetworkID) (chain.Network, error)
}

// Recorder receives balance read metrics.
// Satisfied by *metrics.Metrics.
type Recorder interface {
	RecordBalanceRead(network string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordBalanceRead(string, error) {}
