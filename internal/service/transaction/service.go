package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/chain/eth"
	"github.com/mrz1836/custody/internal/crypto"
	"github.com/mrz1836/custody/internal/metrics"
	"github.com/mrz1836/custody/internal/pending"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// DefaultConfirmTimeout bounds the wait for inclusion.
const DefaultConfirmTimeout = 2 * time.Minute

// Config holds the executor's dependencies.
type Config struct {
	Vault          Vault
	Networks       NetworkResolver
	Clients        chain.Provider
	Notifier       Notifier
	Logger         LogWriter
	Metrics        Recorder
	ConfirmTimeout time.Duration
}

// Service executes confirmed transfer intents.
type Service struct {
	vault          Vault
	networks       NetworkResolver
	clients        chain.Provider
	notifier       Notifier
	logger         LogWriter
	metrics        Recorder
	confirmTimeout time.Duration
}

// NewService creates a new executor.
func NewService(cfg *Config) *Service {
	s := &Service{
		vault:          cfg.Vault,
		networks:       cfg.Networks,
		clients:        cfg.Clients,
		notifier:       cfg.Notifier,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		confirmTimeout: cfg.ConfirmTimeout,
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.confirmTimeout <= 0 {
		s.confirmTimeout = DefaultConfirmTimeout
	}
	return s
}

// Execute signs, broadcasts and awaits the transfer described by p.
// It never returns an error; every failure is folded into the Result.
func (s *Service) Execute(ctx context.Context, p pending.Payload) Result {
	start := time.Now()
	res := s.execute(ctx, p)

	outcome := metrics.OutcomeSuccess
	if !res.Success {
		outcome = metrics.OutcomeFailure
		s.logger.Error("transfer on %s failed: %s", p.Network, res.Reason)
	}
	s.metrics.ObserveTransfer(p.Network.String(), string(p.Kind), outcome, res.Reason, time.Since(start))
	return res
}

//nolint:gocognit,gocyclo // Transfer flow is a fixed sequence of checks
func (s *Service) execute(ctx context.Context, p pending.Payload) Result {
	network, err := s.networks.Resolve(p.Network)
	if err != nil {
		return failure(err)
	}

	asset, amount, err := ValidatePayload(network, p)
	if err != nil {
		return failure(err)
	}

	key, from, err := s.signingKey(p)
	if err != nil {
		return failure(err)
	}
	defer crypto.ZeroBytes(key)

	client, err := s.clients.ClientFor(ctx, network)
	if err != nil {
		return failure(chainError(err))
	}

	fee, err := client.EstimateTransferFee(ctx, chain.FeeRequest{
		Kind:          p.Kind,
		From:          from,
		To:            p.ToAddress,
		Amount:        amount,
		TokenContract: asset.Contract,
	})
	if err != nil {
		return failure(chainError(err))
	}

	if err := checkFunds(ctx, client, network, asset, from, amount, fee); err != nil {
		return failure(err)
	}

	var hash string
	if asset.Contract == "" {
		hash, err = client.SubmitNativeTransfer(ctx, key, p.ToAddress, amount)
	} else {
		hash, err = client.SubmitTokenTransfer(ctx, key, p.ToAddress, amount, asset.Contract)
	}
	if err != nil {
		return failure(chainError(err))
	}
	s.logger.Debug("broadcast %s on %s", hash, network.ID)

	waitCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	block, err := client.AwaitInclusion(waitCtx, hash)
	if err != nil {
		res := failure(chainError(err))
		res.TxHash = hash
		return res
	}

	s.notify(ctx, p, asset, hash)

	return Result{Success: true, TxHash: hash, BlockNumber: block}
}

// signingKey decrypts the sender key and derives its address. The
// caller must zero the key.
func (s *Service) signingKey(p pending.Payload) ([]byte, string, error) {
	keyHex, err := s.vault.DecryptString(p.FromSecret)
	if err != nil {
		return nil, "", err
	}

	key, err := eth.ParseKeyHex(keyHex)
	if err != nil {
		return nil, "", custodyerr.WithCause(custodyerr.ErrDecryption, err)
	}

	from, err := eth.AddressFromKey(key)
	if err != nil {
		crypto.ZeroBytes(key)
		return nil, "", custodyerr.WithCause(custodyerr.ErrDecryption, err)
	}

	if p.FromAddress != "" && !chain.SameAddress(from, p.FromAddress) {
		crypto.ZeroBytes(key)
		return nil, "", custodyerr.WithDetails(custodyerr.ErrInvalidInput, map[string]string{
			"reason": "sender address does not match key",
		})
	}
	return key, from, nil
}

// NotificationText is the message a recipient receives.
func NotificationText(amount, symbol, hash string) string {
	return fmt.Sprintf("💰 Received %s %s\nTX: %s", amount, symbol, hash)
}

func (s *Service) notify(ctx context.Context, p pending.Payload, asset Asset, hash string) {
	if s.notifier == nil || p.NotifyTarget == "" {
		return
	}

	text := NotificationText(strings.TrimSpace(p.Amount), asset.Symbol, hash)
	if err := s.notifier.Send(ctx, p.NotifyTarget, text); err != nil {
		s.logger.Error("notifying recipient of %s: %v", hash, err)
	}
}
