package custody

import (
	"context"
	"io"
	"os"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/mrz1836/custody/internal/account"
	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/chain/eth"
	"github.com/mrz1836/custody/internal/config"
	"github.com/mrz1836/custody/internal/crypto"
	"github.com/mrz1836/custody/internal/metrics"
	"github.com/mrz1836/custody/internal/notify"
	"github.com/mrz1836/custody/internal/pending"
	"github.com/mrz1836/custody/internal/service/balance"
	"github.com/mrz1836/custody/internal/service/transaction"
	"github.com/mrz1836/custody/internal/service/wallet"
	"github.com/mrz1836/custody/internal/watch"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Options overrides parts of the graph Build would otherwise derive from
// the config. The zero value is usable.
type Options struct {
	// Clients replaces the go-ethereum client factory.
	Clients chain.Provider

	// Accounts replaces the configured account store.
	Accounts account.Store

	// Notifier replaces the configured notification channel. It is still
	// wrapped in a dispatcher.
	Notifier notify.Channel

	// Console receives console-channel messages. Defaults to stdout.
	Console io.Writer

	// Clock drives pending expiry.
	Clock clock.Clock

	Logger LogWriter
}

// System is a fully wired engine with the services behind it.
type System struct {
	Engine         *Engine
	Wallets        *wallet.Service
	Balances       *balance.Service
	Networks       *chain.Registry
	Watcher        *watch.Watcher
	Metrics        *metrics.Metrics
	Accounts       account.Store
	DefaultNetwork chain.NetworkID

	closers []func()
}

// Build validates cfg and assembles a System. The caller owns the result
// and must Close it. The pending sweeper and notification dispatcher are
// already running.
func Build(ctx context.Context, cfg *config.Config, opts *Options) (*System, error) {
	if cfg == nil {
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "config is required")
	}
	if opts == nil {
		opts = &Options{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	sys := &System{}
	ok := false
	defer func() {
		if !ok {
			sys.Close()
		}
	}()

	vault, err := crypto.NewVault(cfg.Vault.Passphrase, crypto.WithKDF(cfg.Vault.KeyDerivation))
	if err != nil {
		return nil, err
	}
	sys.closers = append(sys.closers, vault.Close)

	registry, err := chain.RegistryFromConfig(cfg.Networks)
	if err != nil {
		return nil, err
	}
	sys.Networks = registry
	sys.DefaultNetwork = chain.ParseNetworkID(cfg.Networks.Default)

	limiter := chain.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	clients := opts.Clients
	if clients == nil {
		factory := chain.NewFactory(eth.NewCreator(&eth.Options{
			Limiter:      limiter,
			PollInterval: cfg.Executor.PollInterval.Std(),
		}))
		sys.closers = append(sys.closers, factory.Close)
		clients = factory
	}

	accounts, err := openAccounts(ctx, cfg, opts, sys)
	if err != nil {
		return nil, err
	}
	sys.Accounts = accounts

	channel, err := openChannel(cfg, opts, limiter)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(channel, logger)
	dispatcher.Start()
	sys.closers = append(sys.closers, dispatcher.Stop)

	sys.Metrics = metrics.New()

	store := pending.NewStore(&pending.Config{
		Clock:       opts.Clock,
		TTL:         cfg.Pending.TTL.Std(),
		SweepTicker: ticker.New(cfg.Pending.SweepInterval.Std()),
		Logger:      logger,
	})
	sys.Metrics.TrackPending(store.Len)

	sys.Wallets = wallet.NewService(&wallet.Config{
		Vault:    vault,
		Accounts: accounts,
		Logger:   logger,
	})
	sys.Balances = balance.NewService(&balance.Config{
		Resolver: sys.Wallets,
		Networks: registry,
		Clients:  clients,
		Metrics:  sys.Metrics,
	})
	executor := transaction.NewService(&transaction.Config{
		Vault:          vault,
		Networks:       registry,
		Clients:        clients,
		Notifier:       dispatcher,
		Logger:         logger,
		Metrics:        sys.Metrics,
		ConfirmTimeout: cfg.Executor.ConfirmTimeout.Std(),
	})
	sys.Watcher = watch.New(&watch.Config{
		Networks:     registry,
		Clients:      clients,
		PollInterval: cfg.Executor.PollInterval.Std(),
		Metrics:      sys.Metrics,
		Logger:       logger,
	})

	sys.Engine, err = New(&Config{
		Networks: registry,
		Pending:  store,
		Executor: executor,
		Wallets:  sys.Wallets,
		Balances: sys.Balances,
		Metrics:  sys.Metrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	sys.Engine.Start()
	sys.closers = append(sys.closers, sys.Engine.Stop)

	ok = true
	return sys, nil
}

// Close stops background work and releases connections in reverse order
// of construction.
func (s *System) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func openAccounts(ctx context.Context, cfg *config.Config, opts *Options, sys *System) (account.Store, error) {
	if opts.Accounts != nil {
		return opts.Accounts, nil
	}

	switch cfg.Database.Driver {
	case config.DatabaseMemory, "":
		return account.NewMemory(), nil
	case config.DatabasePostgres:
		pg, err := account.NewPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		sys.closers = append(sys.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "unknown database driver %q", cfg.Database.Driver)
	}
}

func openChannel(cfg *config.Config, opts *Options, limiter *chain.RateLimiter) (notify.Channel, error) {
	if opts.Notifier != nil {
		return opts.Notifier, nil
	}

	switch cfg.Notify.Channel {
	case config.NotifyNone, "":
		return notify.Discard{}, nil
	case config.NotifyConsole:
		out := opts.Console
		if out == nil {
			out = os.Stdout
		}
		return notify.NewConsole(out), nil
	case config.NotifyWhatsApp:
		return notify.NewWhatsApp(notify.WhatsAppConfig{
			APIURL:        cfg.Notify.WhatsApp.APIURL,
			PhoneNumberID: cfg.Notify.WhatsApp.PhoneNumberID,
			Token:         cfg.Notify.WhatsApp.Token,
			Limiter:       limiter,
		})
	default:
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "unknown notification channel %q", cfg.Notify.Channel)
	}
}
