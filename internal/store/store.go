package store

import (
	"context"

	"github.com/trenches/ip-venue/internal/store/schema"
)

// Store defines the interface for database operations
type Store interface {
	// GetPriceState retrieves the price state for an asset, nil if unseen
	GetPriceState(ctx context.Context, assetID string) (*schema.PriceState, error)
	// CreatePriceState inserts a price state if the asset is unseen and
	// returns the stored row either way. Concurrent creates for the same
	// asset must converge on a single row.
	CreatePriceState(ctx context.Context, state *schema.PriceState) (*schema.PriceState, error)
	// SavePriceState persists a mutated price state
	SavePriceState(ctx context.Context, state *schema.PriceState) error
	// ListPriceStates retrieves every stored price state
	ListPriceStates(ctx context.Context) ([]*schema.PriceState, error)

	// CommitTrade persists the mutated price state, the ledger entry, and
	// the derived candle in one transaction. Either all three become
	// visible or none do.
	CommitTrade(ctx context.Context, state *schema.PriceState, trade *schema.Trade, candle *schema.Candlestick) error

	// RecentTrades retrieves up to limit trades for an asset, most recent first
	RecentTrades(ctx context.Context, assetID string, limit int) ([]*schema.Trade, error)

	// Candlesticks retrieves up to limit candles for an asset, oldest first
	Candlesticks(ctx context.Context, assetID string, limit int) ([]*schema.Candlestick, error)

	// ClaimEvent atomically records (eventKind, txHash) as processed.
	// It returns true when this call inserted the key, false when the key
	// was already present.
	ClaimEvent(ctx context.Context, eventKind, txHash string) (bool, error)
}
