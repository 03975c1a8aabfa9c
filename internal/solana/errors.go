package solana

import "errors"

var (
	// ErrTransportClosed is returned when a streaming connection ends.
	ErrTransportClosed = errors.New("transport closed")

	// ErrInvalidAddress is returned for strings that are not base58 public keys.
	ErrInvalidAddress = errors.New("invalid address")
)
