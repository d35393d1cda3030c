package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/crypto"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

func TestWalletCreate(t *testing.T) {
	h := newHarness(t)
	qrPath := filepath.Join(h.home, "qr", "address.png")

	out := h.mustRun(t, "wallet", "create", "--qr", qrPath)

	var view walletView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.True(t, chain.IsHexAddress(view.Address))
	assert.Len(t, strings.Fields(view.Mnemonic), 12)
	assert.Equal(t, qrPath, view.QRFile)

	png, err := os.ReadFile(qrPath) //nolint:gosec // G304: test path
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	// nothing is stored
	assert.Equal(t, 0, h.accounts.Len())
}

func TestWalletCreate_Text(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "wallet", "create", "-o", "text")
	assert.Contains(t, out, "📍 Address: 0x")
	assert.Contains(t, out, "🔑 Recovery phrase")
}

func TestWalletCreate_NoPassphrase(t *testing.T) {
	h := newHarness(t)
	t.Setenv("CUSTODY_VAULT_PASSPHRASE", "")

	_, _, err := h.run(t, "", "wallet", "create")
	require.ErrorIs(t, err, custodyerr.ErrConfiguration)
	assert.Contains(t, suggestionOf(err), "CUSTODY_VAULT_PASSPHRASE")
}

func TestWalletRegisterAndBackup(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "wallet", "register", "+2348012345678", "--show-mnemonic")
	var view walletView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "+2348012345678", view.Identifier)
	assert.Equal(t, "bsc", view.Network)
	require.NotEmpty(t, view.Mnemonic)

	acct, err := h.accounts.FindByIdentifier(t.Context(), "+2348012345678")
	require.NoError(t, err)
	assert.Equal(t, view.Address, acct.Address)

	_, _, err = h.run(t, "", "wallet", "register", "+2348012345678")
	require.ErrorIs(t, err, custodyerr.ErrAccountExists)

	password := []byte("correct horse battery")
	withMockPrompts(t, password)

	backupPath := filepath.Join(h.home, "backups", "alice.age")
	h.mustRun(t, "wallet", "backup", "+2348012345678", "--out", backupPath)

	armored, err := os.ReadFile(backupPath) //nolint:gosec // G304: test path
	require.NoError(t, err)
	plain, err := crypto.DecryptBackup(armored, string(password))
	require.NoError(t, err)
	assert.Equal(t, view.Mnemonic, string(plain))

	info, err := os.Stat(backupPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWalletBackup_Errors(t *testing.T) {
	h := newHarness(t)
	withMockPrompts(t, []byte("correct horse battery"))

	_, _, err := h.run(t, "", "wallet", "backup", "+1")
	require.ErrorIs(t, err, custodyerr.ErrInvalidInput)

	_, _, err = h.run(t, "", "wallet", "backup", "+1", "--out", filepath.Join(h.home, "x.age"))
	require.ErrorIs(t, err, custodyerr.ErrUnknownIdentifier)
	assert.NoFileExists(t, filepath.Join(h.home, "x.age"))
}

func TestPromptNewPassword(t *testing.T) {
	restore := saveGlobals(t)
	defer restore()

	tests := []struct {
		name    string
		answers []string
		wantErr string
	}{
		{name: "match", answers: []string{"longenough", "longenough"}},
		{name: "too short", answers: []string{"short"}, wantErr: "at least 8"},
		{name: "mismatch", answers: []string{"longenough", "different"}, wantErr: "do not match"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			answers := append([]string(nil), tc.answers...)
			promptPasswordFn = func(string) ([]byte, error) {
				next := answers[0]
				answers = answers[1:]
				return []byte(next), nil
			}

			got, err := promptNewPassword()
			if tc.wantErr != "" {
				require.ErrorIs(t, err, custodyerr.ErrInvalidInput)
				assert.Contains(t, suggestionOf(err), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "longenough", string(got))
		})
	}
}
