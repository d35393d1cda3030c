// Package errors provides structured error handling for the custody engine.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the custody CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Authentication or decryption failed
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or insufficient funds
	ExitConfig     = 6 // Fatal configuration problem
)

// CustodyError is the structured error type for the custody engine.
type CustodyError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *CustodyError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CustodyError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for CustodyError.
func (e *CustodyError) Is(target error) bool {
	var t *CustodyError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &CustodyError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &CustodyError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	// ErrConfiguration is fatal: the process must not serve requests.
	ErrConfiguration = &CustodyError{
		Code:     "CONFIGURATION_ERROR",
		Message:  "invalid or missing configuration",
		ExitCode: ExitConfig,
	}

	ErrUnsupportedNetwork = &CustodyError{
		Code:     "UNSUPPORTED_NETWORK",
		Message:  "unsupported network",
		ExitCode: ExitInput,
	}

	ErrDecryption = &CustodyError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed",
		ExitCode: ExitAuth,
	}

	ErrUnknownIdentifier = &CustodyError{
		Code:     "UNKNOWN_IDENTIFIER",
		Message:  "no wallet is registered for this identifier",
		ExitCode: ExitNotFound,
	}

	ErrNoMatchingTransaction = &CustodyError{
		Code:     "NO_MATCHING_TRANSACTION",
		Message:  "invalid or expired confirmation code",
		ExitCode: ExitNotFound,
	}

	ErrInsufficientNativeBalance = &CustodyError{
		Code:     "INSUFFICIENT_NATIVE_BALANCE",
		Message:  "insufficient balance",
		ExitCode: ExitPermission,
	}

	ErrInsufficientTokenBalance = &CustodyError{
		Code:     "INSUFFICIENT_TOKEN_BALANCE",
		Message:  "insufficient token balance",
		ExitCode: ExitPermission,
	}

	ErrInsufficientFee = &CustodyError{
		Code:     "INSUFFICIENT_FEE",
		Message:  "insufficient native balance to cover the network fee",
		ExitCode: ExitPermission,
	}

	ErrChainSubmission = &CustodyError{
		Code:     "CHAIN_SUBMISSION_FAILED",
		Message:  "transaction submission failed",
		ExitCode: ExitGeneral,
	}

	ErrInvalidAddress = &CustodyError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &CustodyError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	// Account store errors.
	ErrAccountNotFound = &CustodyError{
		Code:     "ACCOUNT_NOT_FOUND",
		Message:  "account not found",
		ExitCode: ExitNotFound,
	}

	ErrAccountExists = &CustodyError{
		Code:     "ACCOUNT_EXISTS",
		Message:  "account already exists",
		ExitCode: ExitInput,
	}

	ErrNotification = &CustodyError{
		Code:     "NOTIFICATION_FAILED",
		Message:  "notification delivery failed",
		ExitCode: ExitGeneral,
	}
)

// IsInsufficientBalance reports whether err is either the native or the
// token insufficient-balance condition.
func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientNativeBalance) || errors.Is(err, ErrInsufficientTokenBalance)
}

// New creates a new CustodyError with the given code and message.
func New(code, message string) *CustodyError {
	return &CustodyError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ce *CustodyError
	if errors.As(err, &ce) {
		return &CustodyError{
			Code:       ce.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ce.Message),
			Details:    ce.Details,
			Suggestion: ce.Suggestion,
			Cause:      err,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CustodyError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of a sentinel carrying cause as its underlying
// error. The result still matches the sentinel under errors.Is.
func WithCause(sentinel *CustodyError, cause error) error {
	return &CustodyError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ce *CustodyError
	if errors.As(err, &ce) {
		return &CustodyError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    details,
			Suggestion: ce.Suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CustodyError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ce *CustodyError
	if errors.As(err, &ce) {
		return &CustodyError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    ce.Details,
			Suggestion: suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CustodyError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *CustodyError
	if errors.As(err, &ce) {
		return ce.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ce *CustodyError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "GENERAL_ERROR"
}

// Message returns the short human-readable message of the outermost
// CustodyError, without details or causes. Plain errors yield the
// generic message.
func Message(err error) string {
	var ce *CustodyError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return ErrGeneral.Message
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
