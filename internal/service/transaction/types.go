package transaction

import (
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// Result is the outcome of executing a transfer. Failures are reported
// here rather than as an error.
type Result struct {
	Success     bool
	TxHash      string
	BlockNumber uint64

	// Error is a short human-readable failure message.
	Error string

	// Reason is the machine-readable error code of the failure.
	Reason string
}

// failure folds err into a failed Result.
func failure(err error) Result {
	return Result{
		Success: false,
		Error:   custodyerr.Message(err),
		Reason:  custodyerr.Code(err),
	}
}

// Failed reports whether the result failed for the given reason.
func (r Result) Failed(reason *custodyerr.CustodyError) bool {
	return !r.Success && r.Reason == reason.Code
}
