package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// ErrNoPrice is returned when a source answers but carries no usable price.
var ErrNoPrice = errors.New("no price in response")

// Fetcher defines the interface for fetching the current price of a symbol.
type Fetcher interface {
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// newHTTPClient builds a client with timeout and optional proxy support.
func newHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
