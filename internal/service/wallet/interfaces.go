// Package wallet creates custodial wallets and resolves user identifiers
// to the addresses they control.
package wallet

// Vault encrypts and decrypts wallet secrets.
// Satisfied by *crypto.Vault.
type Vault interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(secret string) (string, error)
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
