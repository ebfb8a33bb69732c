package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MoonLamp/internal/model"
)

// MockFetcher returns a controllable price sequence for development and testing.
// Prices are served in order; the last one repeats.
type MockFetcher struct {
	mu     sync.Mutex
	Prices []float64
	Err    error
	calls  int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, _ string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return 0, m.Err
	}
	if len(m.Prices) == 0 {
		return 0, ErrNoPrice
	}
	i := m.calls - 1
	if i >= len(m.Prices) {
		i = len(m.Prices) - 1
	}
	return m.Prices[i], nil
}

// Calls returns how many fetches were made.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Collector fetches quotes for one symbol.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
	Now     func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, Now: time.Now}
}

// Collect fetches the current price and stamps it with the collection time.
func (c *Collector) Collect(ctx context.Context) (model.Quote, error) {
	price, err := c.Fetcher.FetchCurrentPrice(ctx, c.Symbol)
	if err != nil {
		return model.Quote{}, fmt.Errorf("fetch current price: %w", err)
	}
	if price <= 0 {
		return model.Quote{}, fmt.Errorf("fetch current price: non-positive price %v: %w", price, ErrNoPrice)
	}
	return model.Quote{
		Symbol:    c.Symbol,
		Source:    c.Fetcher.Name(),
		Price:     price,
		FetchedAt: c.Now(),
	}, nil
}
