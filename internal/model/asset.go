package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is reference data for a tradeable instrument.
// PriceURL is fetched as-is; PricePath is a jsonpath expression selecting the
// fiat price inside the response. An empty PricePath means "the fiat field of
// the sole entry", e.g. {"bitcoin":{"eur":60000}}.
type Asset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	PriceURL  string `json:"priceUrl"`
	PricePath string `json:"pricePath,omitempty"`
}

// AssetPrice is one successfully polled price.
type AssetPrice struct {
	ID        string          `json:"id"`
	AssetID   string          `json:"assetId"`
	Price     decimal.Decimal `json:"price"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// LatestPrice is the last known price of an asset as exposed by the API.
// Available is false until the first successful fetch.
type LatestPrice struct {
	AssetID   string           `json:"assetId"`
	Name      string           `json:"name"`
	Symbol    string           `json:"symbol"`
	Price     *decimal.Decimal `json:"price"`
	FetchedAt *time.Time       `json:"fetchedAt,omitempty"`
	Available bool             `json:"available"`
}
