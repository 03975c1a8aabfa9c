package solana

import (
	"context"
	"encoding/json"
)

// LogSubscriber streams program log notifications for an address.
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, address string, out chan<- LogNotification) error
}

// ProgramSubscriber streams account notifications for accounts owned by a program.
type ProgramSubscriber interface {
	SubscribeProgram(ctx context.Context, address string, out chan<- AccountNotification) error
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
}

// AccountNotification represents a program subscription message.
type AccountNotification struct {
	Pubkey     string
	Slot       int64
	Lamports   uint64
	Owner      string
	Executable bool
	RentEpoch  uint64
	// Data holds decoded bytes when the node returned base64 encoded data.
	Data []byte
	// ParsedData holds the raw JSON when the node returned a parsed representation.
	ParsedData json.RawMessage
}
