// Package store holds the claim history and token registry. Both are served
// by in-memory implementations by default, with a postgres backend available
// for deployments that want history to survive restarts.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ZeroAddress is the sentinel token address for native ETH claims.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ClaimRecord is one past claim. Records are immutable once appended and are
// observational only: the contract, not the history, gates claims.
type ClaimRecord struct {
	ID           uuid.UUID `json:"id"`
	Address      string    `json:"address"`
	TokenAddress string    `json:"tokenAddress"`
	Amount       string    `json:"amount"`
	TxHash       string    `json:"txHash"`
	Timestamp    time.Time `json:"timestamp"`
}

// TokenInfo is the registry metadata for a dispensable ERC-20 token.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
}

// Stats summarizes claim history for display. Never authoritative.
type Stats struct {
	TotalClaims     int            `json:"totalClaims"`
	UniqueAddresses int            `json:"uniqueAddresses"`
	ClaimsByToken   map[string]int `json:"claimsByToken"`
}

// HistoryStore records past claims. Append happens only after a transaction
// is confirmed; there is no update or delete.
type HistoryStore interface {
	Append(ctx context.Context, rec ClaimRecord) error
	// ListByAddress returns the address's claims, newest first.
	ListByAddress(ctx context.Context, address string) ([]ClaimRecord, error)
	// ListAll returns every claim, newest first. Used by the admin export.
	ListAll(ctx context.Context) ([]ClaimRecord, error)
	// Stats aggregates claim counts; an empty address means global. Errors
	// are swallowed by callers into empty defaults.
	Stats(ctx context.Context, address string) (Stats, error)
}

// TokenStore is the mutable token registry. Lookups are case-insensitive on
// the token address.
type TokenStore interface {
	Get(ctx context.Context, address string) (TokenInfo, bool, error)
	List(ctx context.Context) ([]TokenInfo, error)
	Put(ctx context.Context, info TokenInfo) error
	Delete(ctx context.Context, address string) (bool, error)
}

// NormalizeAddress canonicalizes a hex address for use as a store key.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
