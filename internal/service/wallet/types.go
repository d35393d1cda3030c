package wallet

import "github.com/mrz1836/custody/internal/account"

// Wallet is the persisted form of a custodial wallet. Both secrets are
// vault-encrypted strings.
type Wallet struct {
	Address             string
	EncryptedPrivateKey string
	EncryptedMnemonic   string
}

// CreatedWallet is returned once, at creation. The plaintext fields must
// be shown to the operator and then discarded.
type CreatedWallet struct {
	Wallet

	Mnemonic      string
	PrivateKeyHex string

	// QRCodePNG is a base64 PNG of the address.
	QRCodePNG string
}

// Resolution is the outcome of resolving an identifier or address.
type Resolution struct {
	Address string

	// Account is set when the input was a registered identifier.
	Account *account.Account
}

// IsAccount reports whether the resolution came from the account store.
func (r Resolution) IsAccount() bool {
	return r.Account != nil
}
