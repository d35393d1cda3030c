package pending

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	minCode = 100000
	maxCode = 999999
)

// CodeGenerator produces confirmation codes.
type CodeGenerator interface {
	NewCode() (string, error)
}

// RandomCodes draws codes uniformly from 100000-999999.
type RandomCodes struct {
	// Reader is the entropy source. Defaults to crypto/rand.
	Reader io.Reader
}

// NewCode returns a fresh 6-digit code.
func (g RandomCodes) NewCode() (string, error) {
	r := g.Reader
	if r == nil {
		r = rand.Reader
	}

	n, err := rand.Int(r, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", fmt.Errorf("drawing confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+minCode), nil
}

// IsCode reports whether s has the shape of a confirmation code.
func IsCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
