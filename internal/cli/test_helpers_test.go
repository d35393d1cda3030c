package cli

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custody/internal/account"
	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/chain/chaintest"
	"github.com/mrz1836/custody/internal/config"
	"github.com/mrz1836/custody/internal/custody"
	"github.com/mrz1836/custody/internal/watch"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const (
	testPassphrase = "cli test passphrase"
	bscUSDT        = "0x55d398326f99059fF775485246999027B3197955"
)

func whole(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// saveGlobals saves all package-level globals and returns a restore function.
func saveGlobals(t *testing.T) func() {
	t.Helper()
	origCfg := cfg
	origLogger := logger
	origFormatter := formatter
	origBuild := buildSystemFn
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	return func() {
		cfg = origCfg
		logger = origLogger
		formatter = origFormatter
		buildSystemFn = origBuild
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		resetFlags()
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	}
}

// resetFlags puts every flag variable back to its default.
func resetFlags() {
	homeDir = ""
	outputFormat = "auto"
	verbose = false
	networkFlag = ""
	walletQRPath = ""
	walletShowSecret = false
	backupOutPath = ""
	watchDuration = watch.DefaultWindow
	consoleSender = ""
	consoleMetricsAddr = ""
	configForce = false
}

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, password []byte) {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
	})
	promptPasswordFn = func(_ string) ([]byte, error) {
		return append([]byte(nil), password...), nil
	}
	promptNewPasswordFn = func() ([]byte, error) {
		return append([]byte(nil), password...), nil
	}
}

// harness runs the root command against scripted chain clients and an
// account store shared across invocations.
type harness struct {
	home     string
	provider *chaintest.Provider
	client   *chaintest.Client
	accounts *account.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	restore := saveGlobals(t)
	t.Cleanup(restore)

	t.Setenv(config.EnvHome, "")
	t.Setenv("CUSTODY_VAULT_PASSPHRASE", testPassphrase)
	t.Setenv("CUSTODY_KEY_DERIVATION", config.KDFScrypt)
	t.Setenv("CUSTODY_DEFAULT_NETWORK", "")
	t.Setenv("CUSTODY_NOTIFY_CHANNEL", "")
	t.Setenv("CUSTODY_METRICS_ADDR", "")
	t.Setenv("CUSTODY_DATABASE_DSN", "")
	t.Setenv("CUSTODY_LOG_FILE", "")

	h := &harness{
		home:     t.TempDir(),
		provider: chaintest.NewProvider(),
		accounts: account.NewMemory(),
	}
	h.client = h.provider.Add(chain.BSC, chaintest.New())

	buildSystemFn = func(ctx context.Context, c *config.Config, opts *custody.Options) (*custody.System, error) {
		opts.Clients = h.provider
		opts.Accounts = h.accounts
		return custody.Build(ctx, c, opts)
	}
	return h
}

// run executes the root command with args and returns stdout and stderr.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--home", h.home}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// mustRun is run that fails the test on error.
func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := h.run(t, "", args...)
	require.NoError(t, err, "stderr: %s", errOut)
	return out
}

// suggestionOf returns the suggestion attached to err, if any.
func suggestionOf(err error) string {
	var ce *custodyerr.CustodyError
	if custodyerr.As(err, &ce) {
		return ce.Suggestion
	}
	return ""
}

// syncBuffer is a bytes.Buffer safe for the dispatcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
