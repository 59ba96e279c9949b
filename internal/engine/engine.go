// Package engine applies buy/sell trades to per-asset bonding-curve state.
// It is the only writer of price states, the trade ledger, and candlesticks.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/trenches/ip-venue/internal/adapter"
	"github.com/trenches/ip-venue/internal/curve"
	"github.com/trenches/ip-venue/internal/domain"
	"github.com/trenches/ip-venue/internal/store"
	"github.com/trenches/ip-venue/internal/store/schema"
)

// Defaults for a freshly-touched asset. The curve starts at
// P(10) = 0.001 + 0.01*10 = 0.101 with an empty reserve.
const (
	InitialSupply    = 10.0
	InitialReserve   = 0.0
	DefaultBasePrice = 0.001
	DefaultSlope     = 0.01
)

const (
	defaultTradesLimit  = 20
	defaultCandlesLimit = 100
)

// TradeResult bundles the state, ledger entry, and candle produced by one
// committed trade. The three are mutually consistent: the fill's price is
// the snapshot's current price and the candle's close.
type TradeResult struct {
	State  domain.PriceSnapshot
	Trade  domain.TradeFill
	Candle domain.CandlePoint
}

// Engine orchestrates trade application. All mutations to a given asset are
// serialized under a per-asset mutex held across the read-compute-write
// cycle; operations on different assets proceed in parallel.
type Engine struct {
	store store.Store
	clock adapter.Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a trade engine over the given store
func New(st store.Store, clock adapter.Clock) *Engine {
	return &Engine{
		store: st,
		clock: clock,
		locks: make(map[string]*sync.Mutex),
	}
}

// assetLock returns the mutex serializing mutations for one asset
func (e *Engine) assetLock(assetID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[assetID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[assetID] = lock
	}
	return lock
}

// EnsurePrice returns the price state for an asset, creating it with the
// default curve parameters on first touch. Idempotent under concurrency:
// the store's conflict-ignoring create guarantees a single winning row.
func (e *Engine) EnsurePrice(ctx context.Context, assetID string) (domain.PriceSnapshot, error) {
	state, err := e.ensureState(ctx, assetID)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	return snapshotOf(state), nil
}

func (e *Engine) ensureState(ctx context.Context, assetID string) (*schema.PriceState, error) {
	state, err := e.store.GetPriceState(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return state, nil
	}

	now := e.clock.Now()
	return e.store.CreatePriceState(ctx, &schema.PriceState{
		AssetID:      assetID,
		Supply:       InitialSupply,
		Reserve:      InitialReserve,
		BasePrice:    DefaultBasePrice,
		Slope:        DefaultSlope,
		CurrentPrice: curve.NewLinear(DefaultBasePrice, DefaultSlope).PriceAtSupply(InitialSupply),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Buy applies a purchase of amountTokens against the asset's curve.
// The wallet is optional and recorded on the fill when present.
func (e *Engine) Buy(ctx context.Context, assetID string, amountTokens float64, wallet string) (*TradeResult, error) {
	if amountTokens <= 0 {
		return nil, fmt.Errorf("buy %s: %w", assetID, domain.ErrInvalidAmount)
	}

	lock := e.assetLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.ensureState(ctx, assetID)
	if err != nil {
		return nil, err
	}

	c := curve.NewLinear(state.BasePrice, state.Slope)
	openPrice := state.CurrentPrice
	cost := c.CostToBuy(state.Supply, amountTokens)

	state.Supply += amountTokens
	state.Reserve += cost
	state.CurrentPrice = c.PriceAtSupply(state.Supply)
	state.UpdatedAt = e.clock.Now()

	return e.commit(ctx, state, domain.TradeSideBuy, amountTokens, cost, openPrice, wallet)
}

// Sell applies a sale of amountTokens against the asset's curve. Fails with
// ErrInsufficientSupply when the asset's supply cannot cover the sale.
func (e *Engine) Sell(ctx context.Context, assetID string, amountTokens float64, wallet string) (*TradeResult, error) {
	if amountTokens <= 0 {
		return nil, fmt.Errorf("sell %s: %w", assetID, domain.ErrInvalidAmount)
	}

	lock := e.assetLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.ensureState(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if state.Supply < amountTokens {
		return nil, fmt.Errorf("sell %s: %w", assetID, domain.ErrInsufficientSupply)
	}

	c := curve.NewLinear(state.BasePrice, state.Slope)
	openPrice := state.CurrentPrice
	refund := c.RefundForSell(state.Supply, amountTokens)

	state.Supply -= amountTokens
	// Clamp: floating-point drift must never report negative TVL
	state.Reserve = max(0, state.Reserve-refund)
	state.CurrentPrice = c.PriceAtSupply(state.Supply)
	state.UpdatedAt = e.clock.Now()

	return e.commit(ctx, state, domain.TradeSideSell, amountTokens, refund, openPrice, wallet)
}

// commit persists the mutated state, the ledger entry, and the derived
// candle in a single store transaction. Persistence failures propagate
// uncaught: a retry of a non-idempotent balance mutation would
// double-apply, so idempotency stays with the dedup layer.
func (e *Engine) commit(
	ctx context.Context,
	state *schema.PriceState,
	side domain.TradeSide,
	amountTokens, totalValue, openPrice float64,
	wallet string,
) (*TradeResult, error) {
	trade := &schema.Trade{
		ID:            uuid.NewString(),
		AssetID:       state.AssetID,
		Wallet:        wallet,
		Side:          string(side),
		AmountTokens:  amountTokens,
		TotalValue:    totalValue,
		PricePerToken: state.CurrentPrice,
		CreatedAt:     state.UpdatedAt,
	}
	candle := newCandle(state.AssetID, openPrice, state.CurrentPrice, trade.ID, state.UpdatedAt)

	if err := e.store.CommitTrade(ctx, state, trade, candle); err != nil {
		return nil, err
	}

	return &TradeResult{
		State:  snapshotOf(state),
		Trade:  fillOf(trade),
		Candle: pointOf(candle),
	}, nil
}

// RecentTrades returns up to limit fills for an asset, most recent first
func (e *Engine) RecentTrades(ctx context.Context, assetID string, limit int) ([]domain.TradeFill, error) {
	if limit <= 0 {
		limit = defaultTradesLimit
	}

	trades, err := e.store.RecentTrades(ctx, assetID, limit)
	if err != nil {
		return nil, err
	}

	fills := make([]domain.TradeFill, 0, len(trades))
	for _, trade := range trades {
		fills = append(fills, fillOf(trade))
	}
	return fills, nil
}

// Candlesticks returns up to limit candles for an asset, oldest first,
// shaped for charting
func (e *Engine) Candlesticks(ctx context.Context, assetID string, limit int) ([]domain.CandlePoint, error) {
	if limit <= 0 {
		limit = defaultCandlesLimit
	}

	candles, err := e.store.Candlesticks(ctx, assetID, limit)
	if err != nil {
		return nil, err
	}

	points := make([]domain.CandlePoint, 0, len(candles))
	for _, candle := range candles {
		points = append(points, pointOf(candle))
	}
	return points, nil
}

// ListPrices returns a snapshot of every known asset's price state
func (e *Engine) ListPrices(ctx context.Context) ([]domain.PriceSnapshot, error) {
	states, err := e.store.ListPriceStates(ctx)
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.PriceSnapshot, 0, len(states))
	for _, state := range states {
		snapshots = append(snapshots, snapshotOf(state))
	}
	return snapshots, nil
}

// MigratePrices recomputes the cached current price from the curve for every
// stored asset and returns the number of rows touched. Repairs states
// written before a curve parameter fix.
func (e *Engine) MigratePrices(ctx context.Context) (int, error) {
	states, err := e.store.ListPriceStates(ctx)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, state := range states {
		lock := e.assetLock(state.AssetID)
		lock.Lock()

		current, err := e.store.GetPriceState(ctx, state.AssetID)
		if err != nil {
			lock.Unlock()
			return migrated, err
		}
		if current == nil {
			lock.Unlock()
			continue
		}

		want := curve.NewLinear(current.BasePrice, current.Slope).PriceAtSupply(current.Supply)
		if current.CurrentPrice != want {
			current.CurrentPrice = want
			current.UpdatedAt = e.clock.Now()
			if err := e.store.SavePriceState(ctx, current); err != nil {
				lock.Unlock()
				return migrated, err
			}
			migrated++
		}
		lock.Unlock()
	}
	return migrated, nil
}

func snapshotOf(state *schema.PriceState) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		AssetID:      state.AssetID,
		Supply:       state.Supply,
		Reserve:      state.Reserve,
		BasePrice:    state.BasePrice,
		Slope:        state.Slope,
		CurrentPrice: state.CurrentPrice,
		UpdatedAt:    state.UpdatedAt,
	}
}

func fillOf(trade *schema.Trade) domain.TradeFill {
	return domain.TradeFill{
		ID:            trade.ID,
		AssetID:       trade.AssetID,
		Wallet:        trade.Wallet,
		Side:          domain.TradeSide(trade.Side),
		AmountTokens:  trade.AmountTokens,
		TotalValue:    trade.TotalValue,
		PricePerToken: trade.PricePerToken,
		CreatedAt:     trade.CreatedAt,
	}
}
