package wallet

import (
	"context"
	"strings"

	"github.com/mrz1836/custody/internal/account"
	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/chain/eth"
	"github.com/mrz1836/custody/internal/crypto"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Config contains dependencies for creating a wallet service.
type Config struct {
	Vault    Vault
	Accounts account.Store
	Logger   LogWriter
}

// Service creates wallets and maps identifiers to addresses.
type Service struct {
	vault    Vault
	accounts account.Store
	logger   LogWriter
}

// NewService creates a new wallet service instance.
func NewService(cfg *Config) *Service {
	s := &Service{
		vault:    cfg.Vault,
		accounts: cfg.Accounts,
		logger:   cfg.Logger,
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// CreateWallet generates a mnemonic, derives the key and address, and
// encrypts both secrets. Nothing is persisted.
func (s *Service) CreateWallet() (*CreatedWallet, error) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		return nil, custodyerr.Wrap(err, "generating mnemonic")
	}
	return s.fromMnemonic(mnemonic)
}

// ImportWallet rebuilds a wallet from an existing mnemonic.
func (s *Service) ImportWallet(mnemonic string) (*CreatedWallet, error) {
	return s.fromMnemonic(NormalizeMnemonic(mnemonic))
}

func (s *Service) fromMnemonic(mnemonic string) (*CreatedWallet, error) {
	key, err := DeriveKey(mnemonic)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(key)

	address, err := eth.AddressFromKey(key)
	if err != nil {
		return nil, err
	}

	keyHex := eth.FormatKeyHex(key)
	encKey, err := s.vault.EncryptString(keyHex)
	if err != nil {
		return nil, err
	}
	encMnemonic, err := s.vault.EncryptString(mnemonic)
	if err != nil {
		return nil, err
	}

	qr, err := AddressQR(address)
	if err != nil {
		// The QR is a convenience; the wallet is still usable.
		s.logger.Error("rendering address qr: %v", err)
	}

	s.logger.Debug("wallet created for %s", address)

	return &CreatedWallet{
		Wallet: Wallet{
			Address:             address,
			EncryptedPrivateKey: encKey,
			EncryptedMnemonic:   encMnemonic,
		},
		Mnemonic:      mnemonic,
		PrivateKeyHex: keyHex,
		QRCodePNG:     qr,
	}, nil
}

// ResolveIdentifier maps an identifier or address to an address. Input
// that is already a hex address is returned unchanged without a lookup.
func (s *Service) ResolveIdentifier(ctx context.Context, identifier string) (Resolution, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Resolution{}, custodyerr.Wrap(custodyerr.ErrInvalidInput, "identifier is empty")
	}

	if chain.IsHexAddress(identifier) {
		return Resolution{Address: identifier}, nil
	}

	acct, err := s.lookup(ctx, identifier)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Address: acct.Address, Account: acct}, nil
}

// Register creates and stores a wallet for a new identifier.
func (s *Service) Register(ctx context.Context, identifier string) (*account.Account, *CreatedWallet, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil, custodyerr.Wrap(custodyerr.ErrInvalidInput, "identifier is empty")
	}
	if s.accounts == nil {
		return nil, nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "no account store configured")
	}

	_, err := s.accounts.FindByIdentifier(ctx, identifier)
	switch {
	case err == nil:
		return nil, nil, custodyerr.ErrAccountExists
	case !custodyerr.Is(err, custodyerr.ErrAccountNotFound):
		return nil, nil, err
	}

	created, err := s.CreateWallet()
	if err != nil {
		return nil, nil, err
	}

	acct := &account.Account{
		Identifier:          identifier,
		Address:             created.Address,
		EncryptedPrivateKey: created.EncryptedPrivateKey,
		EncryptedMnemonic:   created.EncryptedMnemonic,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, nil, err
	}

	s.logger.Debug("registered account %s", acct.ID)
	return acct, created, nil
}

// RevealMnemonic decrypts the stored mnemonic of a registered identifier.
func (s *Service) RevealMnemonic(ctx context.Context, identifier string) (string, error) {
	acct, err := s.lookup(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return "", err
	}
	return s.vault.DecryptString(acct.EncryptedMnemonic)
}

// ExportBackup returns the identifier's mnemonic as an age-armored
// backup sealed with password.
func (s *Service) ExportBackup(ctx context.Context, identifier, password string) ([]byte, error) {
	if password == "" {
		return nil, custodyerr.Wrap(custodyerr.ErrInvalidInput, "backup password is empty")
	}

	mnemonic, err := s.RevealMnemonic(ctx, identifier)
	if err != nil {
		return nil, err
	}

	plain := []byte(mnemonic)
	defer crypto.ZeroBytes(plain)

	return crypto.EncryptBackup(plain, password)
}

func (s *Service) lookup(ctx context.Context, identifier string) (*account.Account, error) {
	if s.accounts == nil {
		return nil, custodyerr.ErrUnknownIdentifier
	}

	acct, err := s.accounts.FindByIdentifier(ctx, identifier)
	if custodyerr.Is(err, custodyerr.ErrAccountNotFound) {
		return nil, custodyerr.ErrUnknownIdentifier
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}
