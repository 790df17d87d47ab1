package web3

import (
	"context"
	"math/big"
)

// ChainSnapshot represents summarized network metadata for logging/reporting.
type ChainSnapshot struct {
	ChainID     string
	BlockNumber string
	Notes       string
}

// TransferResult captures the outcome of a native-value transfer.
type TransferResult struct {
	TxHash string
	Nonce  uint64
}

// Client defines the common interface that any chain implementation must
// provide so higher layers can interact with different networks uniformly.
type Client interface {
	// FetchChainSnapshot returns chain metadata for health checks and logs.
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	// BalanceAt returns the native balance of the address in wei.
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
	// Transfer sends native value from the wallet identified by the hex
	// private key to the destination address.
	Transfer(ctx context.Context, privateKeyHex, to string, amountWei *big.Int) (TransferResult, error)
	Close()
}
