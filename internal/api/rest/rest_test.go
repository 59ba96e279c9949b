package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trenches/ip-venue/internal/adapter"
	"github.com/trenches/ip-venue/internal/api/middleware"
	"github.com/trenches/ip-venue/internal/api/rest"
	"github.com/trenches/ip-venue/internal/engine"
	"github.com/trenches/ip-venue/internal/fanout"
	"github.com/trenches/ip-venue/internal/logger"
	"github.com/trenches/ip-venue/internal/realtime"
	"github.com/trenches/ip-venue/internal/store"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	gin.SetMode(gin.TestMode)

	code := m.Run()
	os.Exit(code)
}

type apiFixture struct {
	router *gin.Engine
	engine *engine.Engine
	hub    *realtime.Hub
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	eng := engine.New(store.NewMemoryStore(), adapter.NewClock())
	hub := realtime.NewHub()

	router := gin.New()
	handler := rest.NewHandler(eng, fanout.NewBroadcaster(hub, nil))
	rest.SetupRoutes(router, handler, middleware.AuthConfig{JWTSecret: testSecret})

	return &apiFixture{router: router, engine: eng, hub: hub}
}

func bearerToken(t *testing.T) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "trader-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *apiFixture) do(t *testing.T, method, path, body, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetPriceInitializesAsset(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodGet, "/api/v1/assets/ip-42/price", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot struct {
		AssetID string  `json:"ipId"`
		Supply  float64 `json:"supply"`
		Price   float64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, "ip-42", snapshot.AssetID)
	assert.Equal(t, 10.0, snapshot.Supply)
	assert.InDelta(t, 0.101, snapshot.Price, 1e-12)
}

func TestBuyRequiresAuthentication(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/assets/ip-42/buy", `{"amountTokens":10}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBuyAppliesTrade(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/assets/ip-42/buy",
		`{"wallet":"0xabc","amountTokens":10}`, bearerToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Trade struct {
			Side  string  `json:"side"`
			Total float64 `json:"total"`
		} `json:"trade"`
		State struct {
			Supply float64 `json:"supply"`
			Price  float64 `json:"price"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "buy", resp.Trade.Side)
	assert.InDelta(t, 1.51, resp.Trade.Total, 1e-12)
	assert.Equal(t, 20.0, resp.State.Supply)
	assert.InDelta(t, 0.201, resp.State.Price, 1e-12)
}

func TestSellValidation(t *testing.T) {
	f := setupAPI(t)

	t.Run("non-positive amount", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/assets/ip-42/sell",
			`{"amountTokens":-5}`, bearerToken(t))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("sell exceeds supply", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/assets/ip-42/sell",
			`{"amountTokens":1000}`, bearerToken(t))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/assets/ip-42/sell",
			`{"amountTokens":`, bearerToken(t))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetTradesAndCandles(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/assets/ip-42/buy",
		`{"amountTokens":10}`, bearerToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/assets/ip-42/trades?limit=5", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trades struct {
		Trades []struct {
			AmountTokens float64 `json:"amountTokens"`
		} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trades))
	require.Len(t, trades.Trades, 1)

	w = f.do(t, http.MethodGet, "/api/v1/assets/ip-42/candles", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var candles struct {
		Candles []struct {
			Close float64 `json:"close"`
		} `json:"candles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &candles))
	require.Len(t, candles.Candles, 1)
	assert.InDelta(t, 0.201, candles.Candles[0].Close, 1e-12)
}

func TestGetTradesRejectsBadLimit(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodGet, "/api/v1/assets/ip-42/trades?limit=abc", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListAssets(t *testing.T) {
	f := setupAPI(t)

	f.do(t, http.MethodGet, "/api/v1/assets/ip-1/price", "", "")
	f.do(t, http.MethodGet, "/api/v1/assets/ip-2/price", "", "")

	w := f.do(t, http.MethodGet, "/api/v1/assets", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Assets []struct {
			AssetID string `json:"ipId"`
		} `json:"assets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Assets, 2)
}

func TestMigratePrices(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/assets/migrate-prices", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/assets/migrate-prices", "", bearerToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Migrated int `json:"migrated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Migrated)
}
