// Package account stores the custodial accounts that tie a user handle to
// an encrypted wallet.
package account

import (
	"context"
	"time"
)

// Account links an external handle to its wallet. The key and mnemonic
// are vault-encrypted strings and never held here in plaintext.
type Account struct {
	ID                  string
	Identifier          string
	Address             string
	EncryptedPrivateKey string
	EncryptedMnemonic   string
	CreatedAt           time.Time
}

// Store is the account persistence boundary.
type Store interface {
	// FindByIdentifier returns the account for handle or ErrAccountNotFound.
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)

	// FindByID returns the account with id or ErrAccountNotFound.
	FindByID(ctx context.Context, id string) (*Account, error)

	// Create persists a new account. A taken identifier fails with
	// ErrAccountExists. Empty ID and CreatedAt are filled in.
	Create(ctx context.Context, a *Account) error
}
