package schema

import "time"

// Candlestick represents the candlesticks table - one OHLC point per
// committed trade. Immutable once created.
type Candlestick struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AssetID is the asset this candle belongs to
	AssetID string `gorm:"column:asset_id;not null;index;type:text"`
	// Time is the commit timestamp in RFC3339, sortable as a string
	Time string `gorm:"column:time;not null;type:text"`
	// Open is the price immediately before the trade
	Open float64 `gorm:"column:open;not null"`
	// High is max(open, close)
	High float64 `gorm:"column:high;not null"`
	// Low is min(open, close)
	Low float64 `gorm:"column:low;not null"`
	// Close is the price immediately after the trade
	Close float64 `gorm:"column:close;not null"`
	// TradeID back-references the trade that produced this candle
	TradeID string `gorm:"column:trade_id;not null;type:uuid"`
	// CreatedAt is the timestamp when this candle was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Candlestick model
func (Candlestick) TableName() string {
	return "candlesticks"
}
