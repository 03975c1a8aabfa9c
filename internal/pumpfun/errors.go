package pumpfun

import "errors"

var (
	// ErrMalformedInput is returned when log or account data does not match the expected layout.
	ErrMalformedInput = errors.New("malformed input")

	// ErrNoOp is returned when a swap request produces no instructions.
	ErrNoOp = errors.New("no instructions to execute")

	// ErrAccountNotFound is returned when the bonding curve account does not exist.
	ErrAccountNotFound = errors.New("bonding curve account not found")
)
