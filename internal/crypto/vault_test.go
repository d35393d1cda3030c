package crypto_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mrz1836/custody/internal/crypto"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

func newVault(t *testing.T, passphrase string, opts ...crypto.VaultOption) *crypto.Vault {
	t.Helper()
	v, err := crypto.NewVault(passphrase, opts...)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func TestNewVault_RequiresPassphrase(t *testing.T) {
	t.Parallel()

	for _, pass := range []string{"", "   ", "\n"} {
		v, err := crypto.NewVault(pass)
		require.ErrorIs(t, err, custodyerr.ErrConfiguration)
		assert.Nil(t, v)
	}
}

func TestNewVault_UnknownKDF(t *testing.T) {
	t.Parallel()
	_, err := crypto.NewVault("passphrase", crypto.WithKDF("md5"))
	require.ErrorIs(t, err, custodyerr.ErrConfiguration)
}

func TestVault_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, kdf := range []string{crypto.KDFArgon2id, crypto.KDFScrypt} {
		t.Run(kdf, func(t *testing.T) {
			t.Parallel()
			v := newVault(t, "server secret", crypto.WithKDF(kdf))

			secret, err := v.EncryptString("abandon ability able about above absent")
			require.NoError(t, err)
			assert.True(t, crypto.IsEncrypted(secret))

			ivHex, ctHex, ok := strings.Cut(secret, ":")
			require.True(t, ok)
			assert.Len(t, ivHex, 24)
			assert.NotEmpty(t, ctHex)

			plain, err := v.DecryptString(secret)
			require.NoError(t, err)
			assert.Equal(t, "abandon ability able about above absent", plain)
		})
	}
}

func TestVault_SamePassphraseSameKey(t *testing.T) {
	t.Parallel()
	a := newVault(t, "shared")
	b := newVault(t, "shared")

	secret, err := a.EncryptString("key material")
	require.NoError(t, err)

	plain, err := b.DecryptString(secret)
	require.NoError(t, err)
	assert.Equal(t, "key material", plain)
}

func TestVault_Properties(t *testing.T) {
	t.Parallel()
	v := newVault(t, "property passphrase")

	rapid.Check(t, func(rt *rapid.T) {
		plaintext := rapid.SliceOf(rapid.Byte()).Draw(rt, "plaintext")

		first, err := v.Encrypt(plaintext)
		if err != nil {
			rt.Fatalf("encrypt: %v", err)
		}
		second, err := v.Encrypt(plaintext)
		if err != nil {
			rt.Fatalf("encrypt: %v", err)
		}
		if first == second {
			rt.Fatalf("two encryptions produced identical output %q", first)
		}

		got, err := v.Decrypt(first)
		if err != nil {
			rt.Fatalf("decrypt: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			rt.Fatalf("round trip mismatch: got %x want %x", got, plaintext)
		}
	})
}

func TestVault_TamperedCiphertextProperty(t *testing.T) {
	t.Parallel()
	v := newVault(t, "tamper passphrase")

	rapid.Check(t, func(rt *rapid.T) {
		plaintext := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(rt, "plaintext")
		secret, err := v.Encrypt(plaintext)
		if err != nil {
			rt.Fatalf("encrypt: %v", err)
		}

		// flip one hex digit of the ciphertext part
		sep := strings.Index(secret, ":")
		pos := rapid.IntRange(sep+1, len(secret)-1).Draw(rt, "pos")
		b := []byte(secret)
		if b[pos] == '0' {
			b[pos] = '1'
		} else {
			b[pos] = '0'
		}

		out, err := v.Decrypt(string(b))
		if !errors.Is(err, custodyerr.ErrDecryption) {
			rt.Fatalf("expected decryption error, got %v", err)
		}
		if out != nil {
			rt.Fatalf("tampered input returned plaintext %x", out)
		}
	})
}

func TestVault_DecryptForeignKey(t *testing.T) {
	t.Parallel()
	a := newVault(t, "first server")
	b := newVault(t, "second server")

	secret, err := a.EncryptString("private key")
	require.NoError(t, err)

	out, err := b.Decrypt(secret)
	require.ErrorIs(t, err, custodyerr.ErrDecryption)
	assert.Nil(t, out)
}

func TestVault_DecryptMalformed(t *testing.T) {
	t.Parallel()
	v := newVault(t, "malformed")

	valid, err := v.EncryptString("x")
	require.NoError(t, err)
	ivHex, ctHex, _ := strings.Cut(valid, ":")

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no separator", ivHex + ctHex},
		{"bad iv hex", "zz" + ivHex[2:] + ":" + ctHex},
		{"short iv", ivHex[:10] + ":" + ctHex},
		{"bad ciphertext hex", ivHex + ":not-hex"},
		{"empty ciphertext", ivHex + ":"},
		{"truncated ciphertext", ivHex + ":" + ctHex[:len(ctHex)-2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := v.Decrypt(tt.input)
			require.ErrorIs(t, err, custodyerr.ErrDecryption)
			assert.Nil(t, out)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

//nolint:paralleltest // swaps the package-level Reader
func TestVault_EncryptEntropyFailure(t *testing.T) {
	v := newVault(t, "entropy")

	orig := crypto.Reader
	crypto.Reader = failingReader{}
	defer func() { crypto.Reader = orig }()

	_, err := v.EncryptString("x")
	require.Error(t, err)
}

func TestVault_Closed(t *testing.T) {
	t.Parallel()
	v, err := crypto.NewVault("closing")
	require.NoError(t, err)

	secret, err := v.EncryptString("x")
	require.NoError(t, err)

	v.Close()
	v.Close()

	_, err = v.EncryptString("x")
	require.ErrorIs(t, err, custodyerr.ErrConfiguration)
	_, err = v.Decrypt(secret)
	require.ErrorIs(t, err, custodyerr.ErrConfiguration)
}

func TestIsEncrypted(t *testing.T) {
	t.Parallel()
	assert.False(t, crypto.IsEncrypted(""))
	assert.False(t, crypto.IsEncrypted("0xdeadbeef"))
	assert.False(t, crypto.IsEncrypted("abc:def"))
	assert.False(t, crypto.IsEncrypted(strings.Repeat("a", 24)+":"))
	assert.True(t, crypto.IsEncrypted(strings.Repeat("a", 24)+":00"))
}
