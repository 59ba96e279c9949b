package store

import (
	"context"
	"sync"
	"time"

	"github.com/trenches/ip-venue/internal/store/schema"
)

// memoryStore is an in-memory Store used by tests and by deployments that
// accept process-lifetime state (dedup claims reset on restart).
type memoryStore struct {
	mu      sync.Mutex
	states  map[string]*schema.PriceState
	trades  map[string][]*schema.Trade
	candles map[string][]*schema.Candlestick
	claimed map[string]struct{}
	nextID  int64
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() Store {
	return &memoryStore{
		states:  make(map[string]*schema.PriceState),
		trades:  make(map[string][]*schema.Trade),
		candles: make(map[string][]*schema.Candlestick),
		claimed: make(map[string]struct{}),
	}
}

func (s *memoryStore) GetPriceState(_ context.Context, assetID string) (*schema.PriceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[assetID]
	if !ok {
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (s *memoryStore) CreatePriceState(_ context.Context, state *schema.PriceState) (*schema.PriceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.states[state.AssetID]; ok {
		copied := *existing
		return &copied, nil
	}

	copied := *state
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = copied.CreatedAt
	}
	s.states[state.AssetID] = &copied

	result := copied
	return &result, nil
}

func (s *memoryStore) SavePriceState(_ context.Context, state *schema.PriceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *state
	s.states[state.AssetID] = &copied
	return nil
}

func (s *memoryStore) ListPriceStates(_ context.Context) ([]*schema.PriceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]*schema.PriceState, 0, len(s.states))
	for _, state := range s.states {
		copied := *state
		states = append(states, &copied)
	}
	return states, nil
}

// CommitTrade applies all three writes under the store mutex, so partial
// commits are impossible by construction.
func (s *memoryStore) CommitTrade(_ context.Context, state *schema.PriceState, trade *schema.Trade, candle *schema.Candlestick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stateCopy := *state
	s.states[state.AssetID] = &stateCopy

	tradeCopy := *trade
	if tradeCopy.CreatedAt.IsZero() {
		tradeCopy.CreatedAt = time.Now()
	}
	s.trades[trade.AssetID] = append(s.trades[trade.AssetID], &tradeCopy)

	candleCopy := *candle
	s.nextID++
	candleCopy.ID = s.nextID
	if candleCopy.CreatedAt.IsZero() {
		candleCopy.CreatedAt = time.Now()
	}
	s.candles[candle.AssetID] = append(s.candles[candle.AssetID], &candleCopy)

	return nil
}

func (s *memoryStore) RecentTrades(_ context.Context, assetID string, limit int) ([]*schema.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.trades[assetID]
	if limit > len(all) {
		limit = len(all)
	}

	// Appended in commit order, so most-recent-first is a reverse walk
	trades := make([]*schema.Trade, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		copied := *all[i]
		trades = append(trades, &copied)
	}
	return trades, nil
}

func (s *memoryStore) Candlesticks(_ context.Context, assetID string, limit int) ([]*schema.Candlestick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.candles[assetID]
	if limit > len(all) {
		limit = len(all)
	}

	candles := make([]*schema.Candlestick, 0, limit)
	for _, candle := range all[:limit] {
		copied := *candle
		candles = append(candles, &copied)
	}
	return candles, nil
}

func (s *memoryStore) ClaimEvent(_ context.Context, eventKind, txHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKind + ":" + txHash
	if _, ok := s.claimed[key]; ok {
		return false, nil
	}
	s.claimed[key] = struct{}{}
	return true, nil
}
