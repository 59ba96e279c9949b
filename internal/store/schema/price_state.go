package schema

import "time"

// PriceState represents the price_states table - one row per asset holding
// the bonding-curve state. Mutated only by the trade engine.
type PriceState struct {
	// AssetID is the opaque asset identifier (ipId) assigned at registration
	AssetID string `gorm:"column:asset_id;primaryKey;type:text"`
	// Supply is the outstanding token supply
	Supply float64 `gorm:"column:supply;not null"`
	// Reserve is the total value locked against the supply, never negative
	Reserve float64 `gorm:"column:reserve;not null"`
	// BasePrice is the curve intercept
	BasePrice float64 `gorm:"column:base_price;not null"`
	// Slope is the curve slope
	Slope float64 `gorm:"column:slope;not null"`
	// CurrentPrice caches basePrice + slope*supply after the last mutation
	CurrentPrice float64 `gorm:"column:current_price;not null"`
	// CreatedAt is the timestamp when this state was first created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last committed mutation
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PriceState model
func (PriceState) TableName() string {
	return "price_states"
}
