package fetch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidemark/skimmer/shared"
	"github.com/tidwall/gjson"
)

const (
	// API paths.
	marketsPath = "/v1/markets"
	candlesPath = "/v1/candles"
	bookPath    = "/v1/book"
	balancePath = "/v1/balance"
	orderPath   = "/v1/order"

	// Auth headers.
	apiKeyHeader    = "X-API-KEY"
	signatureHeader = "X-API-SIGN"

	// timestampParam is the freshness parameter included in every signed request.
	timestampParam = "timestamp"

	// tradingStatus is the exchange status string of a tradable market.
	tradingStatus = "trading"
)

// ExchangeConfig represents the configuration for the exchange client.
type ExchangeConfig struct {
	// APIKey is the exchange API key.
	APIKey string
	// SecretKey is the exchange secret key used for request signing.
	SecretKey string
	// BaseURL is the exchange REST endpoint.
	BaseURL string
	// QuoteAsset is the stablecoin quote asset traded against.
	QuoteAsset string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// ExchangeClient represents the signed exchange REST client.
type ExchangeClient struct {
	cfg   *ExchangeConfig
	httpc http.Client
	buf   *bytes.Buffer
}

// Ensure the exchange client implements the market fetcher and order placer
// interfaces.
var _ shared.MarketFetcher = (*ExchangeClient)(nil)
var _ shared.OrderPlacer = (*ExchangeClient)(nil)

// NewExchangeClient instantiates a new exchange client.
func NewExchangeClient(cfg *ExchangeConfig) (*ExchangeClient, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("exchange api credentials cannot be empty strings")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("exchange base url cannot be an empty string")
	}

	return &ExchangeClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
	}, nil
}

// formURL creates full urls including parameters for the api.
func (c *ExchangeClient) formURL(path string, params string) string {
	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	if params != "" {
		c.buf.WriteString("?")
		c.buf.WriteString(params)
	}
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// sign computes the request signature over the canonical request string,
// formed from the method, path, sorted query parameters and the serialized
// body if present.
func (c *ExchangeClient) sign(method string, path string, params string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write([]byte(params))
	if len(body) > 0 {
		mac.Write(body)
	}

	return hex.EncodeToString(mac.Sum(nil))
}

// do executes a signed request against the exchange. Transport errors and
// non-2xx responses are returned as errors, never raised.
func (c *ExchangeClient) do(ctx context.Context, method string, path string, params url.Values, body []byte) (gjson.Result, error) {
	if params == nil {
		params = url.Values{}
	}

	// A fresh millisecond timestamp is part of every signed parameter set.
	params.Set(timestampParam, strconv.FormatInt(time.Now().UnixMilli(), 10))
	encodedParams := params.Encode()
	signature := c.sign(method, path, encodedParams, body)

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.formURL(path, encodedParams), reader)
	if err != nil {
		return gjson.Result{}, &TransportError{Op: "creating request", Err: err}
	}

	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	req.Header.Set(signatureHeader, signature)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return gjson.Result{}, &TransportError{Op: fmt.Sprintf("%s %s", method, path), Err: err}
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, &TransportError{Op: "reading response body", Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := gjson.GetBytes(respBody, "message").String()
		if message == "" {
			message = string(respBody)
		}

		return gjson.Result{}, &RejectionError{StatusCode: resp.StatusCode, Message: message}
	}

	return gjson.ParseBytes(respBody), nil
}

// ParseCandlesticks parses candlesticks from the provided json data.
func (c *ExchangeClient) ParseCandlesticks(data []gjson.Result, market string, interval shared.Interval) []shared.Candlestick {
	candles := make([]shared.Candlestick, len(data))

	for idx := range data {
		var candle shared.Candlestick

		candle.Open = data[idx].Get("open").Float()
		candle.Low = data[idx].Get("low").Float()
		candle.High = data[idx].Get("high").Float()
		candle.Close = data[idx].Get("close").Float()
		candle.Volume = data[idx].Get("volume").Float()
		candle.Date = time.UnixMilli(data[idx].Get("time").Int()).UTC()

		candle.Market = market
		candle.Interval = interval

		candles[idx] = candle
	}

	return candles
}

// FetchCandles fetches the candle history for the provided market and
// interval. The interval is validated locally against the supported set, and
// a history shorter than the interval minimum is rejected as insufficient.
func (c *ExchangeClient) FetchCandles(ctx context.Context, market string, interval shared.Interval, limit int) (*shared.CandleSeries, error) {
	if !interval.Valid() {
		return nil, fmt.Errorf("unsupported interval for %s: %s", market, interval.String())
	}

	params := url.Values{}
	params.Add("market", market)
	params.Add("interval", interval.String())
	params.Add("limit", strconv.Itoa(limit))

	resp, err := c.do(ctx, http.MethodGet, candlesPath, params, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching candles (%s) for %s: %w", interval.String(), market, err)
	}

	candles := c.ParseCandlesticks(resp.Array(), market, interval)
	if len(candles) < interval.MinSize() {
		return nil, fmt.Errorf("candle history (%s) for %s: %w: got %d candles, want %d",
			interval.String(), market, shared.ErrInsufficientData, len(candles), interval.MinSize())
	}

	return shared.NewCandleSeries(market, interval, candles)
}

// FetchTopOfBook fetches the best bid and ask for the provided market.
func (c *ExchangeClient) FetchTopOfBook(ctx context.Context, market string) (decimal.Decimal, decimal.Decimal, error) {
	params := url.Values{}
	params.Add("market", market)

	resp, err := c.do(ctx, http.MethodGet, bookPath, params, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fetching top of book for %s: %w", market, err)
	}

	bid, err := decimal.NewFromString(resp.Get("bid").String())
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parsing best bid for %s: %w", market, err)
	}

	ask, err := decimal.NewFromString(resp.Get("ask").String())
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parsing best ask for %s: %w", market, err)
	}

	return bid, ask, nil
}

// FetchFreeBalance fetches the free balance of the provided asset. Errors are
// logged and reported as a zero balance so a failed balance check cannot
// abort a polling cycle.
func (c *ExchangeClient) FetchFreeBalance(ctx context.Context, asset string) decimal.Decimal {
	params := url.Values{}
	params.Add("asset", asset)

	resp, err := c.do(ctx, http.MethodGet, balancePath, params, nil)
	if err != nil {
		c.cfg.Logger.Error().Msgf("fetching free balance for %s: %v", asset, err)
		return decimal.Zero
	}

	free, err := decimal.NewFromString(resp.Get("free").String())
	if err != nil {
		c.cfg.Logger.Error().Msgf("parsing free balance for %s: %v", asset, err)
		return decimal.Zero
	}

	return free
}

// FetchSymbols fetches the tradable symbols quoted in the configured quote
// asset. The universe is fetched once at startup.
func (c *ExchangeClient) FetchSymbols(ctx context.Context) ([]shared.Symbol, error) {
	resp, err := c.do(ctx, http.MethodGet, marketsPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching symbols: %w", err)
	}

	data := resp.Array()
	symbols := make([]shared.Symbol, 0, len(data))
	for idx := range data {
		quote := data[idx].Get("quote").String()
		tradable := data[idx].Get("status").String() == tradingStatus
		if quote != c.cfg.QuoteAsset || !tradable {
			continue
		}

		minNotional, err := decimal.NewFromString(data[idx].Get("minNotional").String())
		if err != nil {
			return nil, fmt.Errorf("parsing min notional for %s: %w",
				data[idx].Get("market").String(), err)
		}

		symbols = append(symbols, shared.Symbol{
			Name:              data[idx].Get("market").String(),
			Base:              data[idx].Get("base").String(),
			Quote:             quote,
			Tradable:          tradable,
			QuantityPrecision: int32(data[idx].Get("quantityPrecision").Int()),
			MinNotional:       minNotional,
		})
	}

	return symbols, nil
}

// PlaceMarketOrder places a market order on the exchange. There are no
// retries at this layer; retry policy belongs to the execution engine since
// retrying order-mutating calls is not uniformly safe.
func (c *ExchangeClient) PlaceMarketOrder(ctx context.Context, req *shared.OrderRequest) (*shared.OrderResult, error) {
	if req.Side != shared.Buy && req.Side != shared.Sell {
		return nil, fmt.Errorf("unsupported order side for %s: %s", req.Market, req.Side.String())
	}

	body := c.encodeOrderRequest(req)
	resp, err := c.do(ctx, http.MethodPost, orderPath, nil, body)
	if err != nil {
		return nil, fmt.Errorf("placing %s market order for %s: %w", req.Side.String(), req.Market, err)
	}

	result := &shared.OrderResult{
		OrderID: resp.Get("orderId").String(),
		Filled:  resp.Get("status").String() == "filled",
	}
	if result.OrderID == "" {
		return nil, errors.New("exchange response missing order id")
	}

	return result, nil
}

// encodeOrderRequest serializes the provided order request for submission.
func (c *ExchangeClient) encodeOrderRequest(req *shared.OrderRequest) []byte {
	c.buf.WriteString(`{"market":"`)
	c.buf.WriteString(req.Market)
	c.buf.WriteString(`","side":"`)
	c.buf.WriteString(req.Side.String())
	c.buf.WriteString(`","kind":"market"`)
	switch {
	case !req.Notional.IsZero():
		c.buf.WriteString(`,"notional":"`)
		c.buf.WriteString(req.Notional.String())
		c.buf.WriteString(`"`)
	default:
		c.buf.WriteString(`,"quantity":"`)
		c.buf.WriteString(req.Quantity.String())
		c.buf.WriteString(`"`)
	}
	c.buf.WriteString(`,"clientOrderId":"`)
	c.buf.WriteString(req.ClientOrderID)
	c.buf.WriteString(`"}`)

	body := make([]byte, c.buf.Len())
	copy(body, c.buf.Bytes())
	c.buf.Reset()

	return body
}
