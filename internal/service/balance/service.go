package balance

import (
	"context"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/custody/internal/chain"
)

// Config holds the configuration for the balance service.
type Config struct {
	Resolver IdentifierResolver
	Networks NetworkResolver
	Clients  chain.Provider
	Metrics  Recorder
}

// Service provides balance lookups.
type Service struct {
	resolver IdentifierResolver
	networks NetworkResolver
	clients  chain.Provider
	metrics  Recorder
}

// NewService creates a new balance service.
func NewService(cfg *Config) *Service {
	s := &Service{
		resolver: cfg.Resolver,
		networks: cfg.Networks,
		clients:  cfg.Clients,
		metrics:  cfg.Metrics,
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	return s
}

// GetBalance resolves identifierOrAddress and reads its native and token
// balances on network concurrently. Errors propagate unchanged.
func (s *Service) GetBalance(ctx context.Context, identifierOrAddress string, network chain.NetworkID) (*Balance, error) {
	res, err := s.resolver.ResolveIdentifier(ctx, identifierOrAddress)
	if err != nil {
		return nil, err
	}

	n, err := s.networks.Resolve(network)
	if err != nil {
		return nil, err
	}

	client, err := s.clients.ClientFor(ctx, n)
	if err != nil {
		return nil, err
	}

	bal, err := s.read(ctx, client, n, res.Address)
	s.metrics.RecordBalanceRead(n.ID.String(), err)
	if err != nil {
		return nil, err
	}
	return bal, nil
}

func (s *Service) read(ctx context.Context, client chain.BalanceReader, n chain.Network, address string) (*Balance, error) {
	var native, token *big.Int

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		native, err = client.GetNativeBalance(egCtx, address)
		return err
	})
	if n.HasToken() {
		eg.Go(func() error {
			var err error
			token, err = client.GetTokenBalance(egCtx, address, n.Token.Address)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	bal := &Balance{
		Address: address,
		Network: n.ID,
		Native: Amount{
			Symbol: n.NativeSymbol,
			Amount: chain.FormatDecimalAmount(native, n.NativeDecimals),
			Raw:    native,
		},
	}
	if n.HasToken() {
		bal.Token = &Amount{
			Symbol: n.Token.Symbol,
			Amount: chain.FormatDecimalAmount(token, n.Token.Decimals),
			Raw:    token,
		}
	}
	return bal, nil
}
