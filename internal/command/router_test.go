package command

import (
	"context"
	"math/big"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/chain/chaintest"
	"github.com/mrz1836/custody/internal/config"
	"github.com/mrz1836/custody/internal/custody"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const recipientAddr = "0xAbC1230000000000000000000000000000000000"

var codePattern = regexp.MustCompile(`confirm (\d{6})`) //nolint:gochecknoglobals // test helper

func whole(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

type inbox struct {
	mu   sync.Mutex
	msgs []string
}

func (i *inbox) Send(_ context.Context, to, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs = append(i.msgs, to+"|"+text)
	return nil
}

func (i *inbox) all() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.msgs...)
}

type fixture struct {
	router *Router
	sys    *custody.System
	client *chaintest.Client
	inbox  *inbox
	token  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Defaults()
	cfg.Vault.Passphrase = "router test passphrase"
	cfg.Vault.KeyDerivation = config.KDFScrypt

	provider := chaintest.NewProvider()
	client := provider.Add(chain.BSC, chaintest.New())
	box := &inbox{}

	sys, err := custody.Build(context.Background(), cfg, &custody.Options{Clients: provider, Notifier: box})
	require.NoError(t, err)
	t.Cleanup(sys.Close)

	router, err := NewRouter(&Config{
		Engine:   sys.Engine,
		Wallets:  sys.Wallets,
		Networks: sys.Networks,
		Network:  sys.DefaultNetwork,
	})
	require.NoError(t, err)

	return &fixture{
		router: router,
		sys:    sys,
		client: client,
		inbox:  box,
		token:  router.Network().Token.Address,
	}
}

// handle sends text as from and fails the test on an operator error.
func (f *fixture) handle(t *testing.T, from, text string) string {
	t.Helper()
	reply, err := f.router.Handle(context.Background(), from, text)
	require.NoError(t, err)
	return reply
}

// register creates from's wallet and returns its address.
func (f *fixture) register(t *testing.T, from string) string {
	t.Helper()
	f.handle(t, from, "hi")
	res, err := f.sys.Wallets.ResolveIdentifier(context.Background(), from)
	require.NoError(t, err)
	return res.Address
}

func codeFrom(t *testing.T, prompt string) string {
	t.Helper()
	m := codePattern.FindStringSubmatch(prompt)
	require.Len(t, m, 2, "no code in %q", prompt)
	return m[1]
}

func TestNewRouter_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewRouter(nil)
	require.ErrorIs(t, err, custodyerr.ErrConfiguration)

	f := newFixture(t)
	_, err = NewRouter(&Config{Engine: f.sys.Engine, Wallets: f.sys.Wallets, Networks: f.sys.Networks})
	require.ErrorIs(t, err, custodyerr.ErrConfiguration)

	_, err = NewRouter(&Config{Engine: f.sys.Engine, Wallets: f.sys.Wallets, Networks: f.sys.Networks, Network: "nowhere"})
	require.Error(t, err)
}

func TestHandle_Welcome(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	reply := f.handle(t, "+100", "balance")
	assert.Contains(t, reply, "🎉 Wallet created!")
	assert.Contains(t, reply, "🌐 Network: BNB Smart Chain")

	res, err := f.sys.Wallets.ResolveIdentifier(context.Background(), "+100")
	require.NoError(t, err)
	assert.Contains(t, reply, res.Address)

	assert.Equal(t, "📍 Address: "+res.Address+"\n🌐 Network: BNB Smart Chain", f.handle(t, "+100", "ADDRESS"))
}

func TestHandle_InvalidSender(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, from := range []string{"", "  ", recipientAddr} {
		_, err := f.router.Handle(context.Background(), from, "help")
		require.ErrorIs(t, err, custodyerr.ErrInvalidInput, "sender %q", from)
	}
}

func TestHandle_HelpAndUnknown(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "+100")

	tests := []struct {
		text string
		want string
	}{
		{"help", HelpText},
		{"  HELP ", HelpText},
		{"", HelpText},
		{"balanse", "❓ Unknown command. Did you mean *balance*?\n\n" + HelpText},
		{"confrim 123456", "❓ Unknown command. Did you mean *confirm*?\n\n" + HelpText},
		{"withdraw everything", "❓ Unknown command.\n\n" + HelpText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.handle(t, "+100", tt.text), "text %q", tt.text)
	}
}

func TestHandle_Balance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	addr := f.register(t, "+100")
	f.client.SetNative(addr, whole(1))
	f.client.SetToken(addr, f.token, whole(50))

	assert.Equal(t, "💰 Your Balance: 50.0 USDT\n⛽ Gas: 1.0 BNB", f.handle(t, "+100", "balance"))

	f.client.BalanceErr = assert.AnError
	reply, err := f.router.Handle(context.Background(), "+100", "balance")
	require.Error(t, err)
	assert.Equal(t, ReplyUnavailable, reply)
}

func TestHandle_SendAndConfirm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	addr := f.register(t, "+100")
	f.register(t, "+200")
	f.client.SetNative(addr, whole(1))
	f.client.SetToken(addr, f.token, whole(50))

	prompt := f.handle(t, "+100", "send 10 +200")
	code := codeFrom(t, prompt)
	assert.Equal(t,
		"🔐 Confirm sending 10 USDT to +200 on BNB Smart Chain\nReply: confirm "+code+"\nExpires in 5 minutes.",
		prompt)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	reply := f.handle(t, "+100", "confirm "+wrong)
	assert.Equal(t, ReplyNoMatch, reply)
	assert.NotContains(t, reply, wrong)

	// another sender cannot use the code
	f.register(t, "+300")
	assert.Equal(t, ReplyNoMatch, f.handle(t, "+300", "confirm "+code))

	reply = f.handle(t, "+100", "confirm "+code)
	assert.Regexp(t, `^✅ Transaction confirmed!\n🔗 TX: 0x[0-9a-f]{64}$`, reply)

	require.Eventually(t, func() bool { return len(f.inbox.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, f.inbox.all()[0], "+200|💰 Received 10 USDT")

	assert.Equal(t, ReplyNoMatch, f.handle(t, "+100", "confirm "+code))
}

func TestHandle_SendNativeToAddress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	addr := f.register(t, "+100")
	f.client.SetNative(addr, whole(1))

	prompt := f.handle(t, "+100", "send 0.1 bnb "+recipientAddr)
	assert.Contains(t, prompt, "🔐 Confirm sending 0.1 BNB to "+recipientAddr+" on BNB Smart Chain")

	reply := f.handle(t, "+100", "confirm "+codeFrom(t, prompt))
	assert.Contains(t, reply, "✅ Transaction confirmed!")

	subs := f.client.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, chain.TransferNative, subs[0].Kind)

	// no handle, so nobody is notified
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.inbox.all())
}

func TestHandle_SendFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "+100")
	f.register(t, "+200")

	tests := []struct {
		text string
		want string
	}{
		{"send", ReplySendUsage},
		{"send 10", ReplySendUsage},
		{"send 10 usdt +200 extra", ReplySendUsage},
		{"send 10 +999", ReplyRecipientUnknown},
		{"send ten +200", ReplyInvalidAmount},
		{"send 0 +200", ReplyInvalidAmount},
		{"send 10 0x1234", ReplyRecipientUnknown},
		{"send 10 doge +200", "❌ doge is not available on BNB Smart Chain. Use USDT or BNB."},
		{"confirm", ReplyConfirmUsage},
		{"confirm 1 2", ReplyConfirmUsage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.handle(t, "+100", tt.text), "text %q", tt.text)
	}
	assert.Empty(t, f.client.Submissions())
}

func TestHandle_ConfirmFailureReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	addr := f.register(t, "+100")
	f.register(t, "+200")
	f.client.SetToken(addr, f.token, whole(50))

	prompt := f.handle(t, "+100", "send 10 +200")
	reply := f.handle(t, "+100", "confirm "+codeFrom(t, prompt))
	assert.Equal(t, "❌ Transaction failed: insufficient native balance to cover the network fee", reply)
	assert.Empty(t, f.client.Submissions())
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"balance", "balance"},
		{"adress", "address"},
		{"snd", "send"},
		{"hlp", "help"},
		{"zzzzzzzz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, suggest(tt.in))
		})
	}
}

func TestMinutes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "5 minutes", minutes(5*time.Minute-time.Millisecond))
	assert.Equal(t, "1 minute", minutes(10*time.Second))
	assert.Equal(t, "2 minutes", minutes(90*time.Second))
}
