package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CoinGeckoFetcher implements Fetcher using the CoinGecko simple price API.
type CoinGeckoFetcher struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	Client     *http.Client
}

// NewCoinGeckoFetcher creates a new fetcher with optional proxy support.
func NewCoinGeckoFetcher(baseURL, apiKey, vsCurrency, proxyURL string, timeout time.Duration) *CoinGeckoFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGeckoFetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		VsCurrency: strings.ToLower(vsCurrency),
		Client:     newHTTPClient(timeout, proxyURL),
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// FetchCurrentPrice returns the price of coin id symbol (e.g. "ethereum").
func (f *CoinGeckoFetcher) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("ids", symbol)
	q.Set("vs_currencies", f.VsCurrency)
	endpoint := fmt.Sprintf("%s/simple/price?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("coingecko: status %d, body: %s", resp.StatusCode, string(body))
	}

	// {"ethereum":{"usd":3141.59}}
	var result map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("coingecko decode: %w", err)
	}
	prices, ok := result[symbol]
	if !ok {
		return 0, fmt.Errorf("coingecko %s: %w", symbol, ErrNoPrice)
	}
	price, ok := prices[f.VsCurrency]
	if !ok {
		return 0, fmt.Errorf("coingecko %s/%s: %w", symbol, f.VsCurrency, ErrNoPrice)
	}
	return price, nil
}
