package solana

import "context"

// RPCClient defines the Solana RPC HTTP calls used by the executor.
type RPCClient interface {
	// GetAccountInfo retrieves raw account data. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetLatestBlockhash returns the latest blockhash (base58) at confirmed commitment.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// SimulateTransaction simulates a base64 encoded signed transaction.
	SimulateTransaction(ctx context.Context, txBase64 string) (*SimulationResult, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// SimulationResult is the outcome of simulateTransaction.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}
