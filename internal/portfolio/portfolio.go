// Package portfolio derives holdings and profit figures from a set of
// purchase transactions and current prices.
//
// Every function here is total: empty input and zero denominators produce
// zero values, never errors.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/cryptofolio/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Snapshot holds the aggregate figures for one asset at one price.
type Snapshot struct {
	AssetID          string          `json:"assetId,omitempty"`
	TransactionCount int             `json:"transactionCount"`
	TotalInvested    decimal.Decimal `json:"totalInvested"`
	TotalAssetHeld   decimal.Decimal `json:"totalAssetHeld"`
	AverageUnitCost  decimal.Decimal `json:"averageUnitCost"`
	CurrentPrice     decimal.Decimal `json:"currentPrice"`
	CurrentValue     decimal.Decimal `json:"currentValue"`
	TotalProfit      decimal.Decimal `json:"totalProfit"`
	ProfitPercentage decimal.Decimal `json:"profitPercentage"`
	PriceAvailable   bool            `json:"priceAvailable"`
	Display          *Display        `json:"display,omitempty"`
}

// Combined sums the fiat-denominated figures of several snapshots.
// Asset quantities of different assets are never added together.
// TotalInvested covers every asset; CurrentValue, TotalProfit and
// ProfitPercentage only cover priced ones. UnpricedInvested is the part of
// TotalInvested that has no current price, and Complete is false when it is
// not zero.
type Combined struct {
	AssetCount       int             `json:"assetCount"`
	TotalInvested    decimal.Decimal `json:"totalInvested"`
	UnpricedInvested decimal.Decimal `json:"unpricedInvested"`
	CurrentValue     decimal.Decimal `json:"currentValue"`
	TotalProfit      decimal.Decimal `json:"totalProfit"`
	ProfitPercentage decimal.Decimal `json:"profitPercentage"`
	Complete         bool            `json:"complete"`
	Display          *Display        `json:"display,omitempty"`
}

// Summary is the full portfolio view for one user.
type Summary struct {
	Currency string     `json:"currency"`
	Assets   []Snapshot `json:"assets"`
	Combined Combined   `json:"combined"`
}

// TransactionProfit is assetAmount × price − fiatAmount.
func TransactionProfit(tx model.Transaction, price decimal.Decimal) decimal.Decimal {
	return tx.AssetAmount.Mul(price).Sub(tx.FiatAmount)
}

// Compute aggregates txs at the given price, regardless of their asset.
// Callers holding several assets use ComputeByAsset.
func Compute(txs []model.Transaction, price decimal.Decimal) Snapshot {
	invested := decimal.Zero
	held := decimal.Zero
	for _, tx := range txs {
		invested = invested.Add(tx.FiatAmount)
		held = held.Add(tx.AssetAmount)
	}

	avg := decimal.Zero
	if held.IsPositive() {
		avg = invested.Div(held)
	}

	value := held.Mul(price)
	profit := value.Sub(invested)

	return Snapshot{
		TransactionCount: len(txs),
		TotalInvested:    invested,
		TotalAssetHeld:   held,
		AverageUnitCost:  avg,
		CurrentPrice:     price,
		CurrentValue:     value,
		TotalProfit:      profit,
		ProfitPercentage: percentage(profit, invested),
		PriceAvailable:   price.IsPositive(),
	}
}

// ComputeByAsset partitions txs by asset and computes one snapshot per
// asset with that asset's own price. Assets without a price are valued at
// zero and flagged with PriceAvailable false. Snapshots are ordered by
// asset ID.
func ComputeByAsset(txs []model.Transaction, prices map[string]decimal.Decimal) []Snapshot {
	byAsset := make(map[string][]model.Transaction)
	for _, tx := range txs {
		byAsset[tx.AssetID] = append(byAsset[tx.AssetID], tx)
	}

	ids := make([]string, 0, len(byAsset))
	for id := range byAsset {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snapshots := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		s := Compute(byAsset[id], prices[id])
		s.AssetID = id
		snapshots = append(snapshots, s)
	}
	return snapshots
}

// Combine sums the fiat figures of snapshots. Snapshots without a price
// add to TotalInvested and UnpricedInvested only, so a missing price never
// shows up as a loss.
func Combine(snapshots []Snapshot) Combined {
	c := Combined{
		AssetCount:       len(snapshots),
		TotalInvested:    decimal.Zero,
		UnpricedInvested: decimal.Zero,
		CurrentValue:     decimal.Zero,
		TotalProfit:      decimal.Zero,
	}
	for _, s := range snapshots {
		c.TotalInvested = c.TotalInvested.Add(s.TotalInvested)
		if !s.PriceAvailable {
			c.UnpricedInvested = c.UnpricedInvested.Add(s.TotalInvested)
			continue
		}
		c.CurrentValue = c.CurrentValue.Add(s.CurrentValue)
		c.TotalProfit = c.TotalProfit.Add(s.TotalProfit)
	}
	c.ProfitPercentage = percentage(c.TotalProfit, c.TotalInvested.Sub(c.UnpricedInvested))
	c.Complete = c.UnpricedInvested.IsZero()
	return c
}

// Summarize builds the per-asset and combined view with display strings in
// the given fiat currency.
func Summarize(txs []model.Transaction, prices map[string]decimal.Decimal, currency string) Summary {
	assets := ComputeByAsset(txs, prices)
	for i := range assets {
		d := assets[i].Format(currency)
		assets[i].Display = &d
	}
	combined := Combine(assets)
	cd := combined.Format(currency)
	combined.Display = &cd

	return Summary{
		Currency: currency,
		Assets:   assets,
		Combined: combined,
	}
}

func percentage(profit, invested decimal.Decimal) decimal.Decimal {
	if invested.IsZero() {
		return decimal.Zero
	}
	return profit.Div(invested).Mul(hundred)
}
