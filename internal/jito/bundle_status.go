package jito

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StatusKind is the relay-observed lifecycle state of a bundle.
type StatusKind string

const (
	StatusPending   StatusKind = "pending"
	StatusLanded    StatusKind = "landed"
	StatusConfirmed StatusKind = "confirmed"
	StatusFinalized StatusKind = "finalized"
	StatusUnknown   StatusKind = "unknown"
)

// BundleStatus is one poll result. It is rebuilt on every poll.
type BundleStatus struct {
	BundleID       string
	Status         StatusKind
	Raw            string // status string as reported by the relay
	Slot           uint64
	Err            json.RawMessage
	TransactionIDs []string
}

// Succeeded reports whether the error payload denotes success:
// absent, null or {"Ok":null}.
func (s *BundleStatus) Succeeded() bool {
	if len(s.Err) == 0 || string(s.Err) == "null" {
		return true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(s.Err, &obj); err != nil {
		return false
	}
	ok, has := obj["Ok"]
	return has && len(obj) == 1 && string(ok) == "null"
}

type inflightStatus struct {
	BundleID   string `json:"bundle_id"`
	Status     string `json:"status"`
	LandedSlot uint64 `json:"landed_slot"`
}

type finalStatus struct {
	BundleID           string          `json:"bundle_id"`
	Transactions       []string        `json:"transactions"`
	Slot               uint64          `json:"slot"`
	ConfirmationStatus string          `json:"confirmation_status"`
	Err                json.RawMessage `json:"err"`
}

func parseInflightStatus(raw json.RawMessage) (*BundleStatus, error) {
	var st inflightStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%w: inflight status: %v", ErrMalformedResponse, err)
	}

	kind := StatusUnknown
	switch st.Status {
	case "Pending":
		kind = StatusPending
	case "Landed":
		kind = StatusLanded
	}
	return &BundleStatus{
		BundleID: st.BundleID,
		Status:   kind,
		Raw:      st.Status,
		Slot:     st.LandedSlot,
	}, nil
}

func parseFinalStatus(raw json.RawMessage) (*BundleStatus, error) {
	if string(raw) == "null" {
		return nil, fmt.Errorf("%w: bundle not found", ErrMalformedResponse)
	}
	var st finalStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%w: bundle status: %v", ErrMalformedResponse, err)
	}

	kind := StatusUnknown
	switch st.ConfirmationStatus {
	case "processed":
		kind = StatusPending
	case "confirmed":
		kind = StatusConfirmed
	case "finalized":
		kind = StatusFinalized
	}
	return &BundleStatus{
		BundleID:       st.BundleID,
		Status:         kind,
		Raw:            st.ConfirmationStatus,
		Slot:           st.Slot,
		Err:            st.Err,
		TransactionIDs: st.Transactions,
	}, nil
}

func isMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// isRetryable reports whether a status poll error should consume an attempt
// instead of aborting confirmation.
func isRetryable(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) || isMalformed(err)
}
