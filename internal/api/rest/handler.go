package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trenches/ip-venue/internal/domain"
	"github.com/trenches/ip-venue/internal/engine"
	"github.com/trenches/ip-venue/internal/fanout"
	"github.com/trenches/ip-venue/internal/logger"
	"go.uber.org/zap"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// GetPrice retrieves (and lazily initializes) the price state of an asset
	// GET /api/v1/assets/:id/price
	GetPrice(c *gin.Context)

	// GetTrades retrieves recent trades for an asset, most recent first
	// GET /api/v1/assets/:id/trades?limit=<limit>
	GetTrades(c *gin.Context)

	// GetCandles retrieves candlestick history for an asset, oldest first
	// GET /api/v1/assets/:id/candles?limit=<limit>
	GetCandles(c *gin.Context)

	// ListAssets retrieves the price state of every known asset
	// GET /api/v1/assets
	ListAssets(c *gin.Context)

	// BuyAsset applies a buy trade against the asset's bonding curve (requires authentication)
	// POST /api/v1/assets/:id/buy
	BuyAsset(c *gin.Context)

	// SellAsset applies a sell trade against the asset's bonding curve (requires authentication)
	// POST /api/v1/assets/:id/sell
	SellAsset(c *gin.Context)

	// MigratePrices recomputes every asset's cached price from its supply (requires authentication)
	// POST /api/v1/assets/migrate-prices
	MigratePrices(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// tradeRequest is the body of buy and sell requests
type tradeRequest struct {
	Wallet       string  `json:"wallet"`
	AmountTokens float64 `json:"amountTokens" binding:"required"`
}

// handler implements the Handler interface
type handler struct {
	engine   *engine.Engine
	notifier fanout.Notifier
}

// NewHandler creates a new REST API handler over the trade engine
func NewHandler(eng *engine.Engine, notifier fanout.Notifier) Handler {
	return &handler{
		engine:   eng,
		notifier: notifier,
	}
}

// GetPrice retrieves the price state of an asset, initializing it on first sight
func (h *handler) GetPrice(c *gin.Context) {
	assetID := c.Param("id")
	if assetID == "" {
		respondBadRequest(c, "Asset ID is required")
		return
	}

	snapshot, err := h.engine.EnsurePrice(c.Request.Context(), assetID)
	if err != nil {
		respondInternalError(c, "Failed to load price state", err.Error())
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetTrades retrieves recent trades for an asset
func (h *handler) GetTrades(c *gin.Context) {
	assetID := c.Param("id")
	if assetID == "" {
		respondBadRequest(c, "Asset ID is required")
		return
	}

	limit, err := parseLimit(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	trades, err := h.engine.RecentTrades(c.Request.Context(), assetID, limit)
	if err != nil {
		respondInternalError(c, "Failed to load trades", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// GetCandles retrieves candlestick history for an asset
func (h *handler) GetCandles(c *gin.Context) {
	assetID := c.Param("id")
	if assetID == "" {
		respondBadRequest(c, "Asset ID is required")
		return
	}

	limit, err := parseLimit(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	candles, err := h.engine.Candlesticks(c.Request.Context(), assetID, limit)
	if err != nil {
		respondInternalError(c, "Failed to load candles", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"candles": candles})
}

// ListAssets retrieves the price state of every known asset
func (h *handler) ListAssets(c *gin.Context) {
	snapshots, err := h.engine.ListPrices(c.Request.Context())
	if err != nil {
		respondInternalError(c, "Failed to list assets", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": snapshots})
}

// BuyAsset applies a buy trade against the asset's bonding curve
func (h *handler) BuyAsset(c *gin.Context) {
	h.applyTrade(c, domain.TradeSideBuy)
}

// SellAsset applies a sell trade against the asset's bonding curve
func (h *handler) SellAsset(c *gin.Context) {
	h.applyTrade(c, domain.TradeSideSell)
}

func (h *handler) applyTrade(c *gin.Context, side domain.TradeSide) {
	assetID := c.Param("id")
	if assetID == "" {
		respondBadRequest(c, "Asset ID is required")
		return
	}

	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	var (
		result *engine.TradeResult
		err    error
	)
	if side == domain.TradeSideBuy {
		result, err = h.engine.Buy(c.Request.Context(), assetID, req.AmountTokens, req.Wallet)
	} else {
		result, err = h.engine.Sell(c.Request.Context(), assetID, req.AmountTokens, req.Wallet)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			respondValidationError(c, "Token amount must be a positive number")
		case errors.Is(err, domain.ErrInsufficientSupply):
			respondValidationError(c, "Sell amount exceeds circulating supply")
		default:
			respondInternalError(c, "Failed to apply trade", err.Error())
		}
		return
	}

	h.notifier.TradeCommitted(c.Request.Context(), result)

	logger.InfoCtx(c.Request.Context(), "Trade applied via REST",
		zap.String("asset_id", assetID),
		zap.String("side", string(side)),
		zap.Float64("amount_tokens", req.AmountTokens))

	c.JSON(http.StatusOK, gin.H{
		"trade": result.Trade,
		"state": result.State,
	})
}

// MigratePrices recomputes every asset's cached price from its supply
func (h *handler) MigratePrices(c *gin.Context) {
	migrated, err := h.engine.MigratePrices(c.Request.Context())
	if err != nil {
		respondInternalError(c, "Failed to migrate prices", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"migrated": migrated})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}

	return limit, nil
}
