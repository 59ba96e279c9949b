package engine

import (
	"time"

	"github.com/trenches/ip-venue/internal/domain"
	"github.com/trenches/ip-venue/internal/store/schema"
)

// newCandle derives the OHLC point for one committed trade: open is the
// price before the trade, close the price after, high/low their extremes.
// One candle per trade, no time bucketing; the series is exactly as long as
// the trade history.
func newCandle(assetID string, openPrice, closePrice float64, tradeID string, at time.Time) *schema.Candlestick {
	return &schema.Candlestick{
		AssetID:   assetID,
		Time:      at.UTC().Format(time.RFC3339),
		Open:      openPrice,
		High:      max(openPrice, closePrice),
		Low:       min(openPrice, closePrice),
		Close:     closePrice,
		TradeID:   tradeID,
		CreatedAt: at,
	}
}

func pointOf(candle *schema.Candlestick) domain.CandlePoint {
	return domain.CandlePoint{
		Time:  candle.Time,
		Open:  candle.Open,
		High:  candle.High,
		Low:   candle.Low,
		Close: candle.Close,
	}
}
