package eth

import (
	"encoding/hex"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// keyHexLen is the hex length of a 32-byte private key.
const keyHexLen = 64

// AddressFromKey returns the checksummed address controlled by a raw
// secp256k1 private key.
func AddressFromKey(key []byte) (string, error) {
	priv, err := ethcrypto.ToECDSA(key)
	if err != nil {
		return "", custodyerr.Wrap(custodyerr.ErrInvalidInput, "invalid private key")
	}
	defer priv.D.SetInt64(0)

	return ethcrypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

// FormatKeyHex renders a private key as 0x-prefixed hex.
func FormatKeyHex(key []byte) string {
	return "0x" + hex.EncodeToString(key)
}

// ParseKeyHex decodes a 32-byte private key with or without the 0x prefix.
func ParseKeyHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != keyHexLen {
		return nil, custodyerr.Wrap(custodyerr.ErrInvalidInput, "private key must be 32 bytes of hex")
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, custodyerr.Wrap(custodyerr.ErrInvalidInput, "private key is not hex")
	}
	return key, nil
}
