package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one purchase of an asset.
// Fiat amounts carry two decimals, asset quantities eight.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	AssetID     string          `json:"assetId"`
	FiatAmount  decimal.Decimal `json:"fiatAmount"`
	AssetAmount decimal.Decimal `json:"assetAmount"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Wallet      string          `json:"wallet"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
}

// TransactionProfit is a transaction valued at the current price of its asset.
type TransactionProfit struct {
	Transaction
	AssetSymbol    string          `json:"assetSymbol"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	CurrentValue   decimal.Decimal `json:"currentValue"`
	Profit         decimal.Decimal `json:"profit"`
	PriceAvailable bool            `json:"priceAvailable"`
}

// TransactionFilter narrows a transaction listing. Zero values mean "any".
// Limit 0 returns every matching row.
type TransactionFilter struct {
	AssetID   string
	Wallets   []string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}
