package schema

import "time"

// Trade represents the trades table - the append-only ledger of executed
// trades. Rows are never updated or deleted.
type Trade struct {
	// ID is the trade identifier (UUID), referenced by candlesticks
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// AssetID is the asset the trade was executed against
	AssetID string `gorm:"column:asset_id;not null;index;type:text"`
	// Wallet is the trader's address, empty for internal/API trades
	Wallet string `gorm:"column:wallet;type:text"`
	// Side is "buy" or "sell"
	Side string `gorm:"column:side;not null;type:text"`
	// AmountTokens is the token quantity traded
	AmountTokens float64 `gorm:"column:amount_tokens;not null"`
	// TotalValue is the cost paid (buy) or refund received (sell)
	TotalValue float64 `gorm:"column:total_value;not null"`
	// PricePerToken is the spot price after the trade committed
	PricePerToken float64 `gorm:"column:price_per_token;not null"`
	// CreatedAt is the commit timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz;index"`
}

// TableName specifies the table name for the Trade model
func (Trade) TableName() string {
	return "trades"
}
