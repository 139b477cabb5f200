package portfolio

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Display holds human readable renderings of a snapshot.
type Display struct {
	TotalInvested    string `json:"totalInvested"`
	UnpricedInvested string `json:"unpricedInvested,omitempty"`
	TotalAssetHeld   string `json:"totalAssetHeld,omitempty"`
	AverageUnitCost  string `json:"averageUnitCost,omitempty"`
	CurrentValue     string `json:"currentValue"`
	TotalProfit      string `json:"totalProfit"`
	ProfitPercentage string `json:"profitPercentage"`
}

// Format renders the snapshot in the given fiat currency.
func (s Snapshot) Format(currency string) Display {
	return Display{
		TotalInvested:    FormatFiat(s.TotalInvested, currency),
		TotalAssetHeld:   FormatQuantity(s.TotalAssetHeld),
		AverageUnitCost:  FormatFiat(s.AverageUnitCost, currency),
		CurrentValue:     FormatFiat(s.CurrentValue, currency),
		TotalProfit:      FormatFiat(s.TotalProfit, currency),
		ProfitPercentage: FormatPercent(s.ProfitPercentage),
	}
}

// Format renders the combined figures in the given fiat currency.
func (c Combined) Format(currency string) Display {
	d := Display{
		TotalInvested:    FormatFiat(c.TotalInvested, currency),
		CurrentValue:     FormatFiat(c.CurrentValue, currency),
		TotalProfit:      FormatFiat(c.TotalProfit, currency),
		ProfitPercentage: FormatPercent(c.ProfitPercentage),
	}
	if !c.Complete {
		d.UnpricedInvested = FormatFiat(c.UnpricedInvested, currency)
	}
	return d
}

// FormatFiat renders amount with the currency's symbol, grouping and minor
// units, e.g. "€1,000.00". Unknown currency codes fall back to
// "1000.00 XYZ".
func FormatFiat(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(currency)
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// FormatQuantity renders an asset quantity with eight decimals.
func FormatQuantity(q decimal.Decimal) string {
	return q.StringFixed(8)
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
