package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/mrz1836/custody/internal/crypto"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// minBackupPassword is the shortest accepted backup password.
const minBackupPassword = 8

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // test seams
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
)

// promptPassword reads a line from the terminal without echo.
// The caller must zero the returned bytes.
func promptPassword(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: Fd() fits in int
	if !term.IsTerminal(fd) {
		return nil, custodyerr.WithSuggestion(
			custodyerr.Wrap(custodyerr.ErrInvalidInput, "a password prompt needs a terminal"),
			"run the command interactively",
		)
	}

	_, _ = fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassword asks twice and checks the length.
// The caller must zero the returned bytes.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Backup password: ")
	if err != nil {
		return nil, err
	}
	if len(password) < minBackupPassword {
		crypto.ZeroBytes(password)
		return nil, custodyerr.WithSuggestion(custodyerr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minBackupPassword))
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		crypto.ZeroBytes(password)
		return nil, err
	}
	defer crypto.ZeroBytes(confirm)

	if string(password) != string(confirm) {
		crypto.ZeroBytes(password)
		return nil, custodyerr.WithSuggestion(custodyerr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}
