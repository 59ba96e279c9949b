package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trenches/ip-venue/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// Migrate creates or updates the venue tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.PriceState{},
		&schema.Trade{},
		&schema.Candlestick{},
		&schema.ProcessedEvent{},
	)
}

// GetPriceState retrieves the price state for an asset, nil if unseen
func (s *pgStore) GetPriceState(ctx context.Context, assetID string) (*schema.PriceState, error) {
	var state schema.PriceState
	err := s.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get price state: %w", err)
	}
	return &state, nil
}

// CreatePriceState inserts the state unless the asset already has one.
// ON CONFLICT DO NOTHING makes concurrent first-touch creates race-safe;
// the read-back returns whichever row won.
func (s *pgStore) CreatePriceState(ctx context.Context, state *schema.PriceState) (*schema.PriceState, error) {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}},
			DoNothing: true,
		}).
		Create(state).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create price state: %w", err)
	}

	stored, err := s.GetPriceState(ctx, state.AssetID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("price state missing after create for asset %s", state.AssetID)
	}
	return stored, nil
}

// SavePriceState persists a mutated price state
func (s *pgStore) SavePriceState(ctx context.Context, state *schema.PriceState) error {
	err := s.db.WithContext(ctx).Save(state).Error
	if err != nil {
		return fmt.Errorf("failed to save price state: %w", err)
	}
	return nil
}

// ListPriceStates retrieves every stored price state
func (s *pgStore) ListPriceStates(ctx context.Context) ([]*schema.PriceState, error) {
	var states []*schema.PriceState
	err := s.db.WithContext(ctx).Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list price states: %w", err)
	}
	return states, nil
}

// CommitTrade persists the state, the trade, and the candle in one
// transaction so a mutated price state can never become visible without
// its ledger entry and candle.
func (s *pgStore) CommitTrade(ctx context.Context, state *schema.PriceState, trade *schema.Trade, candle *schema.Candlestick) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(state).Error; err != nil {
			return err
		}
		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		return tx.Create(candle).Error
	})
	if err != nil {
		return fmt.Errorf("failed to commit trade: %w", err)
	}
	return nil
}

// RecentTrades retrieves up to limit trades for an asset, most recent first
func (s *pgStore) RecentTrades(ctx context.Context, assetID string, limit int) ([]*schema.Trade, error) {
	var trades []*schema.Trade
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent trades: %w", err)
	}
	return trades, nil
}

// Candlesticks retrieves up to limit candles for an asset, oldest first
func (s *pgStore) Candlesticks(ctx context.Context, assetID string, limit int) ([]*schema.Candlestick, error) {
	var candles []*schema.Candlestick
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at ASC").
		Limit(limit).
		Find(&candles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get candlesticks: %w", err)
	}
	return candles, nil
}

// ClaimEvent atomically records (eventKind, txHash) as processed. The
// conflict-ignoring insert is the test-and-set: exactly one caller observes
// RowsAffected == 1 for a given key.
func (s *pgStore) ClaimEvent(ctx context.Context, eventKind, txHash string) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&schema.ProcessedEvent{
			EventKind: eventKind,
			TxHash:    txHash,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim event: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
