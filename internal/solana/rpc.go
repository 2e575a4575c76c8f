package solana

import "context"

// RPCClient defines the Solana RPC HTTP calls the indexer needs.
type RPCClient interface {
	// GetMultipleAccounts retrieves up to MaxMultipleAccounts accounts in one call.
	// The result is positionally aligned with pubkeys; missing accounts are nil.
	GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*AccountInfo, error)
}

// MaxMultipleAccounts is the per-call limit of getMultipleAccounts.
const MaxMultipleAccounts = 100

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}
