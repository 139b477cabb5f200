package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
)

// MockPriceFetcher is an in-memory service.PriceFetcher keyed by asset symbol.
// Symbols without a configured price fail with ErrFeedUnavailable.
type MockPriceFetcher struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  map[string]int
	gate   chan struct{}
}

// NewMockPriceFetcher creates a fetcher without any prices.
func NewMockPriceFetcher() *MockPriceFetcher {
	return &MockPriceFetcher{
		prices: make(map[string]decimal.Decimal),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// WithPrice configures the price returned for symbol and clears any error.
func (m *MockPriceFetcher) WithPrice(symbol, price string) *MockPriceFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = decimal.RequireFromString(price)
	delete(m.errs, symbol)
	return m
}

// WithError makes every fetch of symbol fail with err.
func (m *MockPriceFetcher) WithError(symbol string, err error) *MockPriceFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
	return m
}

// Hold makes fetches block until Release is called or their context ends.
func (m *MockPriceFetcher) Hold() *MockPriceFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
	return m
}

// Release unblocks fetches held by Hold.
func (m *MockPriceFetcher) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Calls returns how often symbol was fetched.
func (m *MockPriceFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// FetchPrice implements service.PriceFetcher.
func (m *MockPriceFetcher) FetchPrice(ctx context.Context, asset model.Asset) (decimal.Decimal, error) {
	m.mu.Lock()
	m.calls[asset.Symbol]++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return decimal.Zero, fmt.Errorf("%w: %w", apperrors.ErrFeedUnavailable, ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[asset.Symbol]; ok {
		return decimal.Zero, err
	}
	price, ok := m.prices[asset.Symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", apperrors.ErrFeedUnavailable, asset.Symbol)
	}
	return price, nil
}

// FeedServer is an httptest server standing in for a public price feed.
// Paths without a configured response return 404.
type FeedServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]feedResponse
}

type feedResponse struct {
	status int
	body   string
}

// NewFeedServer starts a FeedServer that is closed when the test ends.
//
// Example usage:
//
//	srv := testutil.NewFeedServer(t)
//	srv.Respond("/btc", http.StatusOK, `{"bitcoin":{"eur":60000}}`)
//	asset := testutil.NewAsset().WithPriceURL(srv.URL + "/btc").Build(t, db)
func NewFeedServer(t *testing.T) *FeedServer {
	t.Helper()

	fs := &FeedServer{responses: make(map[string]feedResponse)}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		resp, ok := fs.responses[r.URL.Path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}))
	t.Cleanup(fs.Close)
	return fs
}

// Respond sets the response served for path.
func (fs *FeedServer) Respond(path string, status int, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.responses[path] = feedResponse{status: status, body: body}
}
