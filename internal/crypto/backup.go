package crypto

import (
	"bytes"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// EncryptBackup encrypts plaintext for offline storage with an age scrypt
// recipient and returns ASCII-armored output. The password is independent
// of the vault passphrase.
func EncryptBackup(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, custodyerr.WithCause(custodyerr.ErrInvalidInput, err)
	}

	buf := &bytes.Buffer{}
	aw := armor.NewWriter(buf)

	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecryptBackup reverses EncryptBackup. A wrong password or damaged file
// returns ErrDecryption.
func DecryptBackup(data []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, custodyerr.WithCause(custodyerr.ErrInvalidInput, err)
	}

	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(data)), identity)
	if err != nil {
		return nil, custodyerr.WithCause(custodyerr.ErrDecryption, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, custodyerr.WithCause(custodyerr.ErrDecryption, err)
	}
	return plaintext, nil
}
