// Package fanout publishes committed trades to every interested surface:
// the asset's realtime room, the global feed, and the NATS trade stream.
package fanout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trenches/ip-venue/internal/domain"
	"github.com/trenches/ip-venue/internal/engine"
	"github.com/trenches/ip-venue/internal/logger"
	"github.com/trenches/ip-venue/internal/messaging"
	"github.com/trenches/ip-venue/internal/realtime"
)

// Notifier is the commit hook: the watcher and the trade API call it after
// the engine commits a trade.
type Notifier interface {
	TradeCommitted(ctx context.Context, res *engine.TradeResult)
}

// tradePayload is the room-scoped trade notification body
type tradePayload struct {
	AssetID      string           `json:"ipId"`
	Side         domain.TradeSide `json:"side"`
	AmountTokens float64          `json:"amountTokens"`
	Total        float64          `json:"total"`
	Price        float64          `json:"price"`
	Wallet       string           `json:"wallet,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	Supply       float64          `json:"supply"`
	Reserve      float64          `json:"reserve"`
}

// pricePayload is the room-scoped price snapshot body
type pricePayload struct {
	Price   float64 `json:"price"`
	Supply  float64 `json:"supply"`
	Reserve float64 `json:"reserve"`
}

// Broadcaster fans a committed trade out to the realtime hub and, when
// configured, mirrors the fill onto the message bus.
type Broadcaster struct {
	hub       *realtime.Hub
	publisher messaging.Publisher // nil disables the bus mirror
}

// NewBroadcaster creates a broadcaster over the hub; publisher may be nil
func NewBroadcaster(hub *realtime.Hub, publisher messaging.Publisher) *Broadcaster {
	return &Broadcaster{hub: hub, publisher: publisher}
}

// TradeCommitted emits the per-trade notification sequence. Per-session
// delivery follows this order: trade, price, chart-update to the asset's
// room, then the global ip-update. Delivery across the sequence is not
// atomic; only the relative order holds.
func (b *Broadcaster) TradeCommitted(ctx context.Context, res *engine.TradeResult) {
	assetID := res.State.AssetID

	b.hub.ToRoom(assetID, realtime.Message{Event: "trade", Data: tradePayload{
		AssetID:      assetID,
		Side:         res.Trade.Side,
		AmountTokens: res.Trade.AmountTokens,
		Total:        res.Trade.TotalValue,
		Price:        res.Trade.PricePerToken,
		Wallet:       res.Trade.Wallet,
		CreatedAt:    res.Trade.CreatedAt,
		Supply:       res.State.Supply,
		Reserve:      res.State.Reserve,
	}})

	b.hub.ToRoom(assetID, realtime.Message{Event: "price", Data: pricePayload{
		Price:   res.State.CurrentPrice,
		Supply:  res.State.Supply,
		Reserve: res.State.Reserve,
	}})

	b.hub.ToRoom(assetID, realtime.Message{Event: "chart-update", Data: res.Candle})

	b.hub.ToAll(realtime.Message{Event: "ip-update", Data: domain.AssetUpdate{
		AssetID:      assetID,
		Supply:       res.State.Supply,
		CurrentPrice: res.State.CurrentPrice,
		Reserve:      res.State.Reserve,
		MarketCap:    res.State.MarketCap(),
	}})

	b.hub.ToAll(realtime.Message{Event: "log", Data: feedLine(res)})

	if b.publisher != nil {
		fill := res.Trade
		if err := b.publisher.PublishTrade(ctx, &fill); err != nil {
			// The bus mirror is best-effort; the trade is already committed
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to publish trade to bus"), zap.String("trade_id", fill.ID))
		}
	}
}

// feedLine renders the human-readable global feed entry
func feedLine(res *engine.TradeResult) string {
	verb := "Buy"
	if res.Trade.Side == domain.TradeSideSell {
		verb = "Sell"
	}
	who := res.Trade.Wallet
	if len(who) > 6 {
		who = who[:6] + "..."
	}
	if who == "" {
		who = "venue"
	}
	return fmt.Sprintf("%s: %g tokens of %s by %s", verb, res.Trade.AmountTokens, res.State.AssetID, who)
}
