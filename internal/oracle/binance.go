package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultBinanceHost is the Binance spot REST endpoint used for ticker
// lookups.
const defaultBinanceHost = "https://api.binance.com"

// BinanceClient fetches spot ticker prices from the Binance REST API. It is
// the upstream source for quote symbols that are neither stable coins nor
// covered by native-currency feed ticks.
type BinanceClient struct {
	host string
	http *http.Client
}

// NewBinanceClient creates a BinanceClient. An empty host selects the public
// Binance API.
func NewBinanceClient(host string) *BinanceClient {
	if host == "" {
		host = defaultBinanceHost
	}
	return &BinanceClient{
		host: host,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// TickerPrice returns the latest spot price for a Binance ticker such as
// "BNBUSDT".
func (c *BinanceClient) TickerPrice(ctx context.Context, ticker string) (float64, error) {
	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.host, url.QueryEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("oracle: build ticker request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle: fetch ticker %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle: fetch ticker %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var body tickerPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("oracle: decode ticker %s: %w", ticker, err)
	}

	price, err := strconv.ParseFloat(body.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("oracle: parse ticker %s price %q: %w", ticker, body.Price, err)
	}
	return price, nil
}
