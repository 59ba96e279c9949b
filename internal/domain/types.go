package domain

import "time"

// TradeSide represents the direction of a trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// EventKind represents the kind of vault contract event
type EventKind string

const (
	EventKindBuy  EventKind = "buy"
	EventKindSell EventKind = "sell"
)

// VaultEvent represents a normalized Buy/Sell event decoded from the vault
// contract log stream. Amounts are already converted from the contract's
// 10^18 fixed-point representation to token/quote units.
type VaultEvent struct {
	Kind         EventKind `json:"kind"`
	TxHash       string    `json:"tx_hash"`
	Wallet       string    `json:"wallet"`
	AssetID      string    `json:"asset_id"`
	AmountTokens float64   `json:"amount_tokens"`
	AmountQuote  float64   `json:"amount_quote"` // paid on buy, received on sell
	BlockNumber  uint64    `json:"block_number"`
	Timestamp    time.Time `json:"timestamp"`
}

// PriceSnapshot is the externally visible per-asset price state
type PriceSnapshot struct {
	AssetID      string    `json:"ipId"`
	Supply       float64   `json:"supply"`
	Reserve      float64   `json:"reserve"`
	BasePrice    float64   `json:"basePrice"`
	Slope        float64   `json:"slope"`
	CurrentPrice float64   `json:"price"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MarketCap is the venue's market-cap figure: the reserve (total value
// locked), not supply times price, because the curve price is marginal.
func (p PriceSnapshot) MarketCap() float64 {
	return p.Reserve
}

// TradeFill is the externally visible record of one executed trade
type TradeFill struct {
	ID            string    `json:"id"`
	AssetID       string    `json:"ipId"`
	Wallet        string    `json:"wallet,omitempty"`
	Side          TradeSide `json:"side"`
	AmountTokens  float64   `json:"amountTokens"`
	TotalValue    float64   `json:"total"`
	PricePerToken float64   `json:"price"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CandlePoint is one OHLC data point shaped for charting. The venue derives
// one candle per trade, not per time bucket.
type CandlePoint struct {
	Time  string  `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// AssetUpdate is the global notification payload emitted after every
// committed trade, for venue-wide UI surfaces (listings, tickers).
type AssetUpdate struct {
	AssetID      string  `json:"ipId"`
	Supply       float64 `json:"supply"`
	CurrentPrice float64 `json:"currentPrice"`
	Reserve      float64 `json:"reserve"`
	MarketCap    float64 `json:"marketCap"`
}
