package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"io"
	"strings"
	"sync"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// ivSize is the AES-GCM nonce length.
const ivSize = 12

// separator splits the hex IV from the hex ciphertext.
const separator = ":"

// Vault encrypts and decrypts secrets under a key derived once from the
// configured passphrase. Encrypted secrets have the form
// "<hex-iv>:<hex-ciphertext>". A Vault is safe for concurrent use.
type Vault struct {
	mu  sync.RWMutex
	key *LockedBuffer
}

type vaultOptions struct {
	kdf string
}

// VaultOption customizes NewVault.
type VaultOption func(*vaultOptions)

// WithKDF selects the key derivation function (argon2id or scrypt).
func WithKDF(kdf string) VaultOption {
	return func(o *vaultOptions) {
		o.kdf = kdf
	}
}

// NewVault derives the vault key from passphrase. An empty passphrase is
// a configuration error and no vault is returned.
func NewVault(passphrase string, opts ...VaultOption) (*Vault, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "vault passphrase is required")
	}

	o := vaultOptions{kdf: KDFArgon2id}
	for _, opt := range opts {
		opt(&o)
	}

	pass := []byte(passphrase)
	defer ZeroBytes(pass)

	key, err := deriveKey(o.kdf, pass)
	if err != nil {
		return nil, err
	}

	return &Vault{key: NewLockedBuffer(key)}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (v *Vault) Encrypt(plaintext []byte) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(Reader, iv); err != nil {
		return "", custodyerr.Wrap(err, "generating iv")
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	return hex.EncodeToString(iv) + separator + hex.EncodeToString(sealed), nil
}

// EncryptString is Encrypt for string secrets such as mnemonics.
func (v *Vault) EncryptString(plaintext string) (string, error) {
	return v.Encrypt([]byte(plaintext))
}

// Decrypt opens an encrypted secret. Malformed input and authentication
// failures both return ErrDecryption and never partial plaintext.
func (v *Vault) Decrypt(secret string) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ivHex, ctHex, ok := strings.Cut(secret, separator)
	if !ok {
		return nil, custodyerr.Wrap(custodyerr.ErrDecryption, "missing iv separator")
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return nil, custodyerr.Wrap(custodyerr.ErrDecryption, "malformed iv")
	}

	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil {
		return nil, custodyerr.Wrap(custodyerr.ErrDecryption, "malformed ciphertext")
	}

	aead, err := v.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, custodyerr.WithCause(custodyerr.ErrDecryption, err)
	}
	return plaintext, nil
}

// DecryptString is Decrypt for string secrets.
func (v *Vault) DecryptString(secret string) (string, error) {
	plaintext, err := v.Decrypt(secret)
	if err != nil {
		return "", err
	}
	defer ZeroBytes(plaintext)
	return string(plaintext), nil
}

// IsEncrypted reports whether s has the shape of a vault secret. It does
// not check that the secret decrypts.
func IsEncrypted(s string) bool {
	ivHex, ctHex, ok := strings.Cut(s, separator)
	if !ok || len(ivHex) != 2*ivSize || ctHex == "" {
		return false
	}
	_, err := hex.DecodeString(ivHex)
	return err == nil
}

// Close zeroes the key. Later calls fail with ErrConfiguration.
func (v *Vault) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.key.Wipe()
}

func (v *Vault) aead() (cipher.AEAD, error) {
	key := v.key.Bytes()
	if key == nil {
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "vault is closed")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, custodyerr.WithCause(custodyerr.ErrConfiguration, err)
	}
	return cipher.NewGCM(block)
}
