package chain

import (
	"math/big"
	"strings"
)

// ParseDecimalAmount converts a plain decimal string such as "1.5" into
// base units of an asset with the given decimals. Signs, exponents,
// whitespace, a bare leading or trailing dot and more fractional digits
// than decimals allows all yield invalid.
func ParseDecimalAmount(amount string, decimals int, invalid error) (*big.Int, error) {
	whole, frac, hasDot := strings.Cut(amount, ".")
	if whole == "" || (hasDot && frac == "") {
		return nil, invalid
	}
	if len(frac) > decimals || !isDigits(whole) || !isDigits(frac) {
		return nil, invalid
	}

	v, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", decimals-len(frac)), 10)
	if !ok {
		return nil, invalid
	}
	return v, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FormatDecimalAmount renders base units with trailing zeros trimmed but
// at least one fractional digit, so 50e18 at 18 decimals is "50.0".
func FormatDecimalAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	digits := new(big.Int).Abs(amount).String()
	if pad := decimals + 1 - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}

	cut := len(digits) - decimals
	frac := strings.TrimRight(digits[cut:], "0")
	if frac == "" {
		frac = "0"
	}

	s := digits[:cut] + "." + frac
	if amount.Sign() < 0 {
		s = "-" + s
	}
	return s
}

// CompareDecimal reports whether have covers want, formatting both for
// error details when it does not.
func CompareDecimal(have, want *big.Int, decimals int) (ok bool, details map[string]string) {
	if have.Cmp(want) >= 0 {
		return true, nil
	}
	return false, map[string]string{
		"available": FormatDecimalAmount(have, decimals),
		"required":  FormatDecimalAmount(want, decimals),
	}
}
