// Package feed fetches spot prices for assets from public JSON price APIs.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/logging"
	"github.com/ndewijer/cryptofolio/internal/model"
)

const (
	DefaultFiat      = "eur"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 1.0 // requests per second
)

// Client performs one GET per asset and extracts the fiat price from the
// response with the asset's jsonpath expression.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logrus.FieldLogger
	fiat       string
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the outbound request rate. A value <= 0 disables limiting.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithFiat sets the fiat currency code used by the default price path.
func WithFiat(fiat string) ClientOption {
	return func(c *Client) {
		c.fiat = strings.ToLower(fiat)
	}
}

// NewClient creates a feed client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		logger:  logging.Discard(),
		fiat:    DefaultFiat,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// PricePath returns the jsonpath expression used for asset.
// Without an explicit path the fiat field of every top-level entry is
// selected, which matches payloads like {"bitcoin":{"eur":60000}}.
func (c *Client) PricePath(asset model.Asset) string {
	if asset.PricePath != "" {
		return asset.PricePath
	}
	return "$.*." + c.fiat
}

// FetchPrice retrieves the current price of asset. Every failure wraps
// apperrors.ErrFeedUnavailable.
func (c *Client) FetchPrice(ctx context.Context, asset model.Asset) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("%w: rate limit wait: %w", apperrors.ErrFeedUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.PriceURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: failed to create request: %w", apperrors.ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	log := c.logger.WithFields(logrus.Fields{
		"asset":  asset.Symbol,
		"source": req.URL.Host,
	})
	log.Debug("Price feed request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		log.WithError(err).WithField("elapsed", elapsed).Warn("Price feed request failed")
		return decimal.Zero, fmt.Errorf("%w: failed to execute request: %w", apperrors.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": elapsed}).Warn("Price feed non-OK response")
		return decimal.Zero, fmt.Errorf("%w: status %d for %s", apperrors.ErrFeedUnavailable, resp.StatusCode, asset.Symbol)
	}

	var payload any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: failed to decode response: %w", apperrors.ErrFeedUnavailable, err)
	}

	price, err := Extract(payload, c.PricePath(asset))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", apperrors.ErrFeedUnavailable, asset.Symbol, err)
	}

	log.WithFields(logrus.Fields{"price": price.String(), "elapsed": elapsed}).Debug("Price feed response")
	return price, nil
}

// Extract evaluates path against a decoded JSON document and returns the
// first strictly positive numeric value it selects.
func Extract(payload any, path string) (decimal.Decimal, error) {
	val, err := jsonpath.Get(path, payload)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to evaluate %q: %w", path, err)
	}

	// Wildcards yield a list, plain paths a single value.
	candidates, ok := val.([]any)
	if !ok {
		candidates = []any{val}
	}

	for _, c := range candidates {
		if d, ok := toDecimal(c); ok && d.IsPositive() {
			return d, nil
		}
	}
	return decimal.Zero, fmt.Errorf("no positive number at %q", path)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	}
	return decimal.Zero, false
}
