package chain

import (
	"context"
	"sync"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Provider hands out a Client bound to a network.
type Provider interface {
	ClientFor(ctx context.Context, network Network) (Client, error)
}

// Creator builds a Client for a network. Concrete chain packages supply
// one so this package never imports them.
type Creator func(ctx context.Context, network Network) (Client, error)

// Factory creates one Client per network id on first use and reuses it.
type Factory struct {
	mu      sync.Mutex
	create  Creator
	clients map[NetworkID]Client
}

// NewFactory creates a factory around create.
func NewFactory(create Creator) *Factory {
	return &Factory{
		create:  create,
		clients: make(map[NetworkID]Client),
	}
}

// ClientFor returns the cached client for network, creating it if needed.
func (f *Factory) ClientFor(ctx context.Context, network Network) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[network.ID]; ok {
		return c, nil
	}

	if f.create == nil {
		return nil, custodyerr.Wrap(custodyerr.ErrUnsupportedNetwork, "no client creator registered")
	}

	c, err := f.create(ctx, network)
	if err != nil {
		return nil, err
	}
	f.clients[network.ID] = c
	return c, nil
}

// Close closes every client created so far.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, c := range f.clients {
		c.Close()
		delete(f.clients, id)
	}
}

// Compile-time interface check
var _ Provider = (*Factory)(nil)
