package jito

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when no tip percentile snapshot has been received yet.
	ErrNoData = errors.New("no tip percentile data available")

	// ErrInvalidPercentile is returned for percentiles other than 25, 50, 75, 95 and 99.
	ErrInvalidPercentile = errors.New("invalid tip percentile")

	// ErrRelayRejected is returned when the block engine refuses a bundle.
	ErrRelayRejected = errors.New("relay rejected bundle")

	// ErrConfirmationTimeout is returned when a landed bundle never reaches finalized.
	ErrConfirmationTimeout = errors.New("bundle confirmation timed out")

	// ErrTransactionFailed is returned when a finalized bundle carries a transaction error.
	ErrTransactionFailed = errors.New("bundle transaction failed")

	// ErrMalformedResponse is returned when a relay result cannot be decoded.
	ErrMalformedResponse = errors.New("malformed relay response")
)

// TransactionError carries the on-chain error payload of a finalized bundle.
type TransactionError struct {
	BundleID string
	Payload  []byte
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("bundle %s: transaction error: %s", e.BundleID, string(e.Payload))
}

func (e *TransactionError) Unwrap() error {
	return ErrTransactionFailed
}

// RPCError is a JSON-RPC error object returned by the block engine.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("relay RPC error %d: %s", e.Code, e.Message)
}
