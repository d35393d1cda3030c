package crypto

import (
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// KDF names accepted by NewVault.
const (
	KDFArgon2id = "argon2id"
	KDFScrypt   = "scrypt"
)

// keySize is the AES-256 key length.
const keySize = 32

// vaultSalt domain-separates the vault key from any other use of the
// same passphrase. It is fixed so every process derives the same key.
const vaultSalt = "custody/vault/v1"

// Argon2id parameters (RFC 9106 second recommended option, 64 MiB).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Scrypt parameters.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// deriveKey stretches passphrase into a keySize key with the named KDF.
func deriveKey(kdf string, passphrase []byte) ([]byte, error) {
	switch kdf {
	case KDFArgon2id, "":
		return argon2.IDKey(passphrase, []byte(vaultSalt), argonTime, argonMemory, argonThreads, keySize), nil
	case KDFScrypt:
		key, err := scrypt.Key(passphrase, []byte(vaultSalt), scryptN, scryptR, scryptP, keySize)
		if err != nil {
			return nil, custodyerr.WithCause(custodyerr.ErrConfiguration, err)
		}
		return key, nil
	default:
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "unknown key derivation %q", kdf)
	}
}
