package transaction

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/chain/chaintest"
	"github.com/mrz1836/custody/internal/chain/eth"
	"github.com/mrz1836/custody/internal/crypto"
	"github.com/mrz1836/custody/internal/pending"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const (
	primary       chain.NetworkID = "primary"
	tokenContract                 = "0x55d398326f99059fF775485246999027B3197955"
	recipient                     = "0x1111111111111111111111111111111111111111"
)

var errBoom = errors.New("boom") //nolint:gochecknoglobals // shared test error

func primaryNetwork() chain.Network {
	return chain.Network{
		ID:             primary,
		Name:           "Primary",
		EndpointURL:    "http://primary.invalid",
		ChainID:        big.NewInt(97),
		NativeSymbol:   "BNB",
		NativeDecimals: 18,
		Token:          chain.Token{Symbol: "USDT", Address: tokenContract, Decimals: 18},
		MinFeeReserve:  big.NewInt(1_000_000_000_000_000),
	}
}

func units(t *testing.T, amount string, decimals int) *big.Int {
	t.Helper()
	v, err := chain.ParseDecimalAmount(amount, decimals, custodyerr.ErrInvalidAmount)
	require.NoError(t, err)
	return v
}

type sentMessage struct {
	to   string
	text string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, to, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{to: to, text: text})
	return r.err
}

func (r *recordingNotifier) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

type observation struct {
	network, kind, outcome, reason string
}

type recordingMetrics struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingMetrics) ObserveTransfer(network, kind, outcome, reason string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{network, kind, outcome, reason})
}

type harness struct {
	svc      *Service
	vault    *crypto.Vault
	client   *chaintest.Client
	provider *chaintest.Provider
	notifier *recordingNotifier
	metrics  *recordingMetrics
	from     string
	secret   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	v, err := crypto.NewVault("executor test passphrase", crypto.WithKDF(crypto.KDFScrypt))
	require.NoError(t, err)
	t.Cleanup(v.Close)

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	secret, err := v.EncryptString(eth.FormatKeyHex(ethcrypto.FromECDSA(key)))
	require.NoError(t, err)

	registry, err := chain.NewRegistry(primaryNetwork())
	require.NoError(t, err)

	h := &harness{
		vault:    v,
		client:   chaintest.New(),
		provider: chaintest.NewProvider(),
		notifier: &recordingNotifier{},
		metrics:  &recordingMetrics{},
		from:     ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		secret:   secret,
	}
	h.provider.Add(primary, h.client)
	h.svc = NewService(&Config{
		Vault:          v,
		Networks:       registry,
		Clients:        h.provider,
		Notifier:       h.notifier,
		Metrics:        h.metrics,
		ConfirmTimeout: time.Second,
	})
	return h
}

func (h *harness) payload(kind chain.TransferKind, amount string) pending.Payload {
	return pending.Payload{
		Kind:         kind,
		FromSecret:   h.secret,
		FromAddress:  h.from,
		ToAddress:    recipient,
		Amount:       amount,
		Network:      primary,
		NotifyTarget: "+200",
	}
}

func TestExecute_TokenSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.client.SetToken(h.from, tokenContract, units(t, "100", 18))
	h.client.SetNative(h.from, units(t, "0.01", 18))
	h.client.InclusionBlock = 42

	res := h.svc.Execute(context.Background(), h.payload(chain.TransferToken, "10"))
	require.True(t, res.Success, "result: %+v", res)
	assert.Equal(t, uint64(42), res.BlockNumber)
	assert.NotEmpty(t, res.TxHash)
	assert.Empty(t, res.Reason)

	subs := h.client.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, chain.TransferToken, subs[0].Kind)
	assert.Equal(t, h.from, subs[0].From)
	assert.Equal(t, recipient, subs[0].To)
	assert.Equal(t, tokenContract, subs[0].Token)
	assert.Equal(t, 0, units(t, "10", 18).Cmp(subs[0].Amount))

	assert.Equal(t, []sentMessage{{to: "+200", text: "💰 Received 10 USDT\nTX: " + res.TxHash}}, h.notifier.messages())
	assert.Equal(t, []observation{{"primary", "token", "success", ""}}, h.metrics.obs)
}

func TestExecute_NativeSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.client.SetNative(h.from, units(t, "1", 18))

	res := h.svc.Execute(context.Background(), h.payload(chain.TransferNative, "0.5"))
	require.True(t, res.Success, "result: %+v", res)

	subs := h.client.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, chain.TransferNative, subs[0].Kind)
	assert.Empty(t, subs[0].Token)
	assert.Equal(t, []sentMessage{{to: "+200", text: "💰 Received 0.5 BNB\nTX: " + res.TxHash}}, h.notifier.messages())
}

func TestExecute_NoNotifyTarget(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.client.SetNative(h.from, units(t, "1", 18))

	p := h.payload(chain.TransferNative, "0.5")
	p.NotifyTarget = ""
	require.True(t, h.svc.Execute(context.Background(), p).Success)
	assert.Empty(t, h.notifier.messages())
}

func TestExecute_NotifierFailureKeepsSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.notifier.err = errBoom
	h.client.SetNative(h.from, units(t, "1", 18))

	res := h.svc.Execute(context.Background(), h.payload(chain.TransferNative, "0.5"))
	assert.True(t, res.Success)
	assert.Len(t, h.notifier.messages(), 1)
}

func TestExecute_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(t *testing.T, h *harness) pending.Payload
		wantReason *custodyerr.CustodyError
		wantHash   bool
	}{
		{
			name: "insufficient fee reserve",
			setup: func(t *testing.T, h *harness) pending.Payload {
				h.client.SetToken(h.from, tokenContract, units(t, "100", 18))
				h.client.SetNative(h.from, units(t, "0.0005", 18))
				return h.payload(chain.TransferToken, "10")
			},
			wantReason: custodyerr.ErrInsufficientFee,
		},
		{
			name: "fee above reserve",
			setup: func(t *testing.T, h *harness) pending.Payload {
				h.client.Fee = units(t, "0.005", 18)
				h.client.SetToken(h.from, tokenContract, units(t, "100", 18))
				h.client.SetNative(h.from, units(t, "0.002", 18))
				return h.payload(chain.TransferToken, "10")
			},
			wantReason: custodyerr.ErrInsufficientFee,
		},
		{
			name: "insufficient token balance",
			setup: func(t *testing.T, h *harness) pending.Payload {
				h.client.SetToken(h.from, tokenContract, units(t, "5", 18))
				h.client.SetNative(h.from, units(t, "1", 18))
				return h.payload(chain.TransferToken, "10")
			},
			wantReason: custodyerr.ErrInsufficientTokenBalance,
		},
		{
			name: "native balance short of amount plus fee",
			setup: func(t *testing.T, h *harness) pending.Payload {
				h.client.SetNative(h.from, units(t, "0.5", 18))
				return h.payload(chain.TransferNative, "0.5")
			},
			wantReason: custodyerr.ErrInsufficientNativeBalance,
		},
		{
			name: "unsupported network",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				p := h.payload(chain.TransferToken, "10")
				p.Network = "nowhere"
				return p
			},
			wantReason: custodyerr.ErrUnsupportedNetwork,
		},
		{
			name: "invalid amount",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				return h.payload(chain.TransferToken, "ten")
			},
			wantReason: custodyerr.ErrInvalidAmount,
		},
		{
			name: "zero amount",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				return h.payload(chain.TransferToken, "0")
			},
			wantReason: custodyerr.ErrInvalidAmount,
		},
		{
			name: "invalid recipient",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				p := h.payload(chain.TransferToken, "10")
				p.ToAddress = "0xAbc"
				return p
			},
			wantReason: custodyerr.ErrInvalidAddress,
		},
		{
			name: "undecryptable key",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				p := h.payload(chain.TransferToken, "10")
				p.FromSecret = "00:00"
				return p
			},
			wantReason: custodyerr.ErrDecryption,
		},
		{
			name: "sender mismatch",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				p := h.payload(chain.TransferToken, "10")
				p.FromAddress = recipient
				return p
			},
			wantReason: custodyerr.ErrInvalidInput,
		},
		{
			name: "client unavailable",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				h.provider.Err = errBoom
				return h.payload(chain.TransferToken, "10")
			},
			wantReason: custodyerr.ErrChainSubmission,
		},
		{
			name: "balance read fails",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				h.client.BalanceErr = errBoom
				return h.payload(chain.TransferToken, "10")
			},
			wantReason: custodyerr.ErrChainSubmission,
		},
		{
			name: "fee estimate fails",
			setup: func(_ *testing.T, h *harness) pending.Payload {
				h.client.FeeErr = errBoom
				return h.payload(chain.TransferToken, "10")
			},
			wantReason: custodyerr.ErrChainSubmission,
		},
		{
			name: "broadcast fails",
			setup: func(t *testing.T, h *harness) pending.Payload {
				h.client.SetToken(h.from, tokenContract, units(t, "100", 18))
				h.client.SetNative(h.from, units(t, "1", 18))
				h.client.SubmitErr = custodyerr.WithCause(custodyerr.ErrChainSubmission, errBoom)
				return h.payload(chain.TransferToken, "10")
			},
			wantReason: custodyerr.ErrChainSubmission,
		},
		{
			name: "inclusion fails",
			setup: func(t *testing.T, h *harness) pending.Payload {
				h.client.SetToken(h.from, tokenContract, units(t, "100", 18))
				h.client.SetNative(h.from, units(t, "1", 18))
				h.client.AwaitErr = context.DeadlineExceeded
				return h.payload(chain.TransferToken, "10")
			},
			wantReason: custodyerr.ErrChainSubmission,
			wantHash:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			res := h.svc.Execute(context.Background(), tt.setup(t, h))

			assert.False(t, res.Success)
			assert.Equal(t, tt.wantReason.Code, res.Reason)
			assert.True(t, res.Failed(tt.wantReason))
			assert.NotEmpty(t, res.Error)
			assert.NotContains(t, res.Error, h.secret)
			assert.Equal(t, tt.wantHash, res.TxHash != "")
			assert.Empty(t, h.notifier.messages(), "no notification on failure")

			require.Len(t, h.metrics.obs, 1)
			assert.Equal(t, "failure", h.metrics.obs[0].outcome)
			assert.Equal(t, tt.wantReason.Code, h.metrics.obs[0].reason)
		})
	}
}

func TestExecute_InsufficientFeeDoesNotBroadcast(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.client.SetToken(h.from, tokenContract, units(t, "100", 18))

	res := h.svc.Execute(context.Background(), h.payload(chain.TransferToken, "10"))
	assert.Equal(t, custodyerr.ErrInsufficientFee.Code, res.Reason)
	assert.Empty(t, h.client.Submissions())
	assert.Empty(t, h.notifier.messages())
}

func TestNewService_Defaults(t *testing.T) {
	t.Parallel()

	svc := NewService(&Config{})
	assert.Equal(t, DefaultConfirmTimeout, svc.confirmTimeout)
	assert.NotNil(t, svc.logger)
	assert.NotNil(t, svc.metrics)
}
