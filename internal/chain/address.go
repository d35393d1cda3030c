package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsHexAddress reports whether s is a 0x-prefixed 20-byte hex address.
// Checksum casing is not enforced.
func IsHexAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	return common.IsHexAddress(s)
}

// ChecksumAddress returns the EIP-55 form of a hex address. Invalid input
// is returned unchanged.
func ChecksumAddress(s string) string {
	if !IsHexAddress(s) {
		return s
	}
	return common.HexToAddress(s).Hex()
}

// SameAddress compares two hex addresses ignoring checksum casing.
func SameAddress(a, b string) bool {
	return IsHexAddress(a) && IsHexAddress(b) && strings.EqualFold(a, b)
}
