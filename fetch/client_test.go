package fetch

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tidemark/skimmer/shared"
	"github.com/tidwall/gjson"
)

const (
	testAPIKey    = "test-api-key"
	testSecretKey = "test-secret-key"
)

// setupClient creates an exchange client pointed at the provided test server.
func setupClient(t *testing.T, server *httptest.Server) *ExchangeClient {
	t.Helper()

	client, err := NewExchangeClient(&ExchangeConfig{
		APIKey:     testAPIKey,
		SecretKey:  testSecretKey,
		BaseURL:    server.URL,
		QuoteAsset: "USDT",
		Logger:     &log.Logger,
	})
	assert.NoError(t, err)

	return client
}

// verifyRequestAuth asserts the auth headers and timestamp freshness parameter
// of an inbound request, recomputing the expected signature server side.
func verifyRequestAuth(t *testing.T, r *http.Request, body []byte) {
	t.Helper()

	assert.Equal(t, r.Header.Get(apiKeyHeader), testAPIKey)
	assert.NotEqual(t, r.URL.Query().Get(timestampParam), "")

	mac := hmac.New(sha256.New, []byte(testSecretKey))
	mac.Write([]byte(r.Method))
	mac.Write([]byte(r.URL.Path))
	mac.Write([]byte(r.URL.RawQuery))
	if len(body) > 0 {
		mac.Write(body)
	}
	assert.Equal(t, r.Header.Get(signatureHeader), hex.EncodeToString(mac.Sum(nil)))
}

// candlePayload serializes the provided number of one hour candles.
func candlePayload(size int) string {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	entries := make([]string, size)
	for idx := range entries {
		entries[idx] = fmt.Sprintf(`{"open":100,"high":101,"low":99,"close":100.5,"volume":12,"time":%d}`,
			start.Add(time.Duration(idx)*time.Hour).UnixMilli())
	}

	return "[" + strings.Join(entries, ",") + "]"
}

func TestNewExchangeClient(t *testing.T) {
	// Ensure missing credentials are rejected.
	_, err := NewExchangeClient(&ExchangeConfig{BaseURL: "http://localhost", Logger: &log.Logger})
	assert.Error(t, err)

	// Ensure a missing base url is rejected.
	_, err = NewExchangeClient(&ExchangeConfig{APIKey: "k", SecretKey: "s", Logger: &log.Logger})
	assert.Error(t, err)
}

func TestFetchCandles(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifyRequestAuth(t, r, nil)
		assert.Equal(t, r.URL.Path, candlesPath)
		assert.Equal(t, r.URL.Query().Get("market"), "BTCUSDT")
		assert.Equal(t, r.URL.Query().Get("interval"), "60m")
		assert.Equal(t, r.URL.Query().Get("limit"), "250")
		fmt.Fprint(w, candlePayload(shared.MinSeriesSize))
	}))
	defer server.Close()

	client := setupClient(t, server)

	// Ensure a sufficient candle history is fetched and parsed.
	series, err := client.FetchCandles(ctx, "BTCUSDT", shared.SixtyMinute, 250)
	assert.NoError(t, err)
	assert.Equal(t, series.Size(), shared.MinSeriesSize)
	assert.Equal(t, series.Market, "BTCUSDT")
	assert.Equal(t, series.Candles[0].Open, float64(100))
	assert.Equal(t, series.Candles[0].Close, 100.5)

	// Ensure an unsupported interval is rejected locally.
	_, err = client.FetchCandles(ctx, "BTCUSDT", shared.Interval(99), 250)
	assert.Error(t, err)
}

func TestFetchCandlesInsufficientData(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candlePayload(shared.MinSeriesSize-50))
	}))
	defer server.Close()

	client := setupClient(t, server)

	// Ensure a short candle history is reported as insufficient.
	_, err := client.FetchCandles(ctx, "BTCUSDT", shared.SixtyMinute, 250)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInsufficientData))
}

func TestFetchTopOfBook(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifyRequestAuth(t, r, nil)
		assert.Equal(t, r.URL.Path, bookPath)
		fmt.Fprint(w, `{"bid":"49999.5","ask":"50000.5"}`)
	}))
	defer server.Close()

	client := setupClient(t, server)

	// Ensure the best bid and ask are fetched.
	bid, ask, err := client.FetchTopOfBook(ctx, "BTCUSDT")
	assert.NoError(t, err)
	assert.True(t, bid.Equal(decimal.NewFromFloat(49999.5)))
	assert.True(t, ask.Equal(decimal.NewFromFloat(50000.5)))
}

func TestFetchFreeBalance(t *testing.T) {
	ctx := context.Background()
	fail := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"exchange unavailable"}`)
			return
		}

		assert.Equal(t, r.URL.Query().Get("asset"), "BTC")
		fmt.Fprint(w, `{"free":"1.25"}`)
	}))
	defer server.Close()

	client := setupClient(t, server)

	// Ensure the free balance is fetched.
	free := client.FetchFreeBalance(ctx, "BTC")
	assert.True(t, free.Equal(decimal.NewFromFloat(1.25)))

	// Ensure a failed balance fetch reports a zero balance.
	fail = true
	free = client.FetchFreeBalance(ctx, "BTC")
	assert.True(t, free.IsZero())
}

func TestFetchSymbols(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, marketsPath)
		fmt.Fprint(w, `[
			{"market":"BTCUSDT","base":"BTC","quote":"USDT","status":"trading","quantityPrecision":5,"minNotional":"10"},
			{"market":"ETHBTC","base":"ETH","quote":"BTC","status":"trading","quantityPrecision":4,"minNotional":"0.0001"},
			{"market":"XYZUSDT","base":"XYZ","quote":"USDT","status":"halted","quantityPrecision":2,"minNotional":"10"}
		]`)
	}))
	defer server.Close()

	client := setupClient(t, server)

	// Ensure only tradable symbols quoted in the configured asset survive.
	symbols, err := client.FetchSymbols(ctx)
	assert.NoError(t, err)
	assert.Equal(t, len(symbols), 1)
	assert.Equal(t, symbols[0].Name, "BTCUSDT")
	assert.Equal(t, symbols[0].Base, "BTC")
	assert.Equal(t, symbols[0].QuantityPrecision, int32(5))
	assert.True(t, symbols[0].MinNotional.Equal(decimal.NewFromInt(10)))
}

func TestPlaceMarketOrder(t *testing.T) {
	ctx := context.Background()
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		gotBody = body

		verifyRequestAuth(t, r, body)
		assert.Equal(t, r.Method, http.MethodPost)
		assert.Equal(t, r.URL.Path, orderPath)
		fmt.Fprint(w, `{"orderId":"12345","status":"filled"}`)
	}))
	defer server.Close()

	client := setupClient(t, server)

	// Ensure a notional sized buy is serialized and placed.
	result, err := client.PlaceMarketOrder(ctx, &shared.OrderRequest{
		Market:        "BTCUSDT",
		Side:          shared.Buy,
		Notional:      decimal.NewFromInt(100),
		ClientOrderID: "client-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, result.OrderID, "12345")
	assert.True(t, result.Filled)

	assert.Equal(t, gjson.GetBytes(gotBody, "market").String(), "BTCUSDT")
	assert.Equal(t, gjson.GetBytes(gotBody, "side").String(), "buy")
	assert.Equal(t, gjson.GetBytes(gotBody, "kind").String(), "market")
	assert.Equal(t, gjson.GetBytes(gotBody, "notional").String(), "100")
	assert.Equal(t, gjson.GetBytes(gotBody, "clientOrderId").String(), "client-1")

	// Ensure a quantity sized sell is serialized and placed.
	result, err = client.PlaceMarketOrder(ctx, &shared.OrderRequest{
		Market:        "BTCUSDT",
		Side:          shared.Sell,
		Quantity:      decimal.NewFromFloat(0.002),
		ClientOrderID: "client-2",
	})
	assert.NoError(t, err)
	assert.Equal(t, result.OrderID, "12345")

	assert.Equal(t, gjson.GetBytes(gotBody, "side").String(), "sell")
	assert.Equal(t, gjson.GetBytes(gotBody, "quantity").String(), "0.002")

	// Ensure an unsupported order side is rejected locally.
	_, err = client.PlaceMarketOrder(ctx, &shared.OrderRequest{
		Market: "BTCUSDT",
		Side:   shared.None,
	})
	assert.Error(t, err)
}

func TestPlaceMarketOrderRejection(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"insufficient funds"}`)
	}))
	defer server.Close()

	client := setupClient(t, server)

	// Ensure an exchange rejection surfaces its status and message.
	_, err := client.PlaceMarketOrder(ctx, &shared.OrderRequest{
		Market:        "BTCUSDT",
		Side:          shared.Buy,
		Notional:      decimal.NewFromInt(100),
		ClientOrderID: "client-3",
	})
	assert.Error(t, err)

	var rejection *RejectionError
	assert.True(t, errors.As(err, &rejection))
	assert.Equal(t, rejection.StatusCode, http.StatusBadRequest)
	assert.Equal(t, rejection.Message, "insufficient funds")
}

func TestPlaceMarketOrderMissingOrderID(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"filled"}`)
	}))
	defer server.Close()

	client := setupClient(t, server)

	// Ensure a response without an order id is rejected.
	_, err := client.PlaceMarketOrder(ctx, &shared.OrderRequest{
		Market:        "BTCUSDT",
		Side:          shared.Buy,
		Notional:      decimal.NewFromInt(100),
		ClientOrderID: "client-4",
	})
	assert.Error(t, err)
}
