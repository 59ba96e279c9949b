package schema

import "time"

// ProcessedEvent represents the processed_events table - the dedup ledger.
// Presence of a (event_kind, tx_hash) row means the event was already
// applied. Rows are never removed outside an administrative reset.
type ProcessedEvent struct {
	// EventKind is "buy" or "sell"
	EventKind string `gorm:"column:event_kind;primaryKey;type:text"`
	// TxHash is the transaction hash the event arrived in
	TxHash string `gorm:"column:tx_hash;primaryKey;type:text"`
	// CreatedAt is the timestamp when the event was claimed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ProcessedEvent model
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
