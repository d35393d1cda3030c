package wallet

import (
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/mrz1836/custody/internal/crypto"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// DerivationPath is the BIP-44 path of every custodial key.
const DerivationPath = "m/44'/60'/0'/0/0"

const (
	mnemonicEntropyBits = 128
	privateKeyLen       = 32

	// maxTypoDistance is the largest edit distance offered as a correction.
	maxTypoDistance = 2
)

// derivationIndexes spells out DerivationPath.
var derivationIndexes = []uint32{
	bip32.FirstHardenedChild + 44,
	bip32.FirstHardenedChild + 60,
	bip32.FirstHardenedChild + 0,
	0,
	0,
}

// ErrInvalidMnemonic indicates the phrase fails BIP-39 validation.
var ErrInvalidMnemonic = custodyerr.Wrap(custodyerr.ErrInvalidInput, "invalid mnemonic phrase")

// GenerateMnemonic creates a fresh 12-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroBytes(entropy)

	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic lowercases and collapses whitespace.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// DeriveKey returns the private key at DerivationPath for mnemonic.
// The caller must zero the returned slice.
func DeriveKey(mnemonic string) ([]byte, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		if hint := typoHint(mnemonic); hint != "" {
			return nil, custodyerr.WithSuggestion(ErrInvalidMnemonic, hint)
		}
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	defer crypto.ZeroBytes(seed)

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, custodyerr.Wrap(err, "deriving master key")
	}
	for _, idx := range derivationIndexes {
		if key, err = key.NewChildKey(idx); err != nil {
			return nil, custodyerr.Wrap(err, "deriving child key")
		}
	}

	raw := key.Key
	if len(raw) > privateKeyLen {
		raw = raw[len(raw)-privateKeyLen:]
	}
	priv := make([]byte, privateKeyLen)
	copy(priv[privateKeyLen-len(raw):], raw)
	crypto.ZeroBytes(key.Key)

	return priv, nil
}

// SuggestWord returns the closest BIP-39 word to input, or "" when nothing
// is within maxTypoDistance. A valid word is returned unchanged.
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	best, bestDist := "", math.MaxInt
	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < bestDist {
			best, bestDist = word, dist
		}
	}
	if bestDist <= maxTypoDistance {
		return best
	}
	return ""
}

// typoHint describes the words of mnemonic missing from the word list.
func typoHint(mnemonic string) string {
	var hints []string
	for i, word := range strings.Fields(mnemonic) {
		suggestion := SuggestWord(word)
		switch {
		case suggestion == word:
			continue
		case suggestion == "":
			hints = append(hints, fmt.Sprintf("word %d %q is not a BIP-39 word", i+1, word))
		default:
			hints = append(hints, fmt.Sprintf("word %d %q: did you mean %q?", i+1, word, suggestion))
		}
	}
	return strings.Join(hints, "; ")
}
