package portfolio

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/cryptofolio/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(asset, fiat, amount string) model.Transaction {
	return model.Transaction{
		AssetID:     asset,
		FiatAmount:  d(fiat),
		AssetAmount: d(amount),
		UnitPrice:   d(fiat).DivRound(d(amount), 2),
	}
}

func TestCompute(t *testing.T) {
	t.Run("single purchase at higher price", func(t *testing.T) {
		s := Compute([]model.Transaction{tx("btc", "1000", "0.02")}, d("60000"))

		checks := map[string]struct{ got, want decimal.Decimal }{
			"TotalInvested":    {s.TotalInvested, d("1000")},
			"TotalAssetHeld":   {s.TotalAssetHeld, d("0.02")},
			"AverageUnitCost":  {s.AverageUnitCost, d("50000")},
			"CurrentValue":     {s.CurrentValue, d("1200")},
			"TotalProfit":      {s.TotalProfit, d("200")},
			"ProfitPercentage": {s.ProfitPercentage, d("20")},
		}
		for name, c := range checks {
			if !c.got.Equal(c.want) {
				t.Errorf("%s = %s, want %s", name, c.got, c.want)
			}
		}
		if s.TransactionCount != 1 {
			t.Errorf("Expected 1 transaction, got %d", s.TransactionCount)
		}
		if !s.PriceAvailable {
			t.Error("Expected price to be available")
		}
	})

	t.Run("empty input is all zeros", func(t *testing.T) {
		s := Compute(nil, d("60000"))

		for name, v := range map[string]decimal.Decimal{
			"TotalInvested":    s.TotalInvested,
			"TotalAssetHeld":   s.TotalAssetHeld,
			"AverageUnitCost":  s.AverageUnitCost,
			"CurrentValue":     s.CurrentValue,
			"TotalProfit":      s.TotalProfit,
			"ProfitPercentage": s.ProfitPercentage,
		} {
			if !v.IsZero() {
				t.Errorf("Expected %s to be zero, got %s", name, v)
			}
		}
	})

	t.Run("zero price values holdings at zero", func(t *testing.T) {
		s := Compute([]model.Transaction{tx("btc", "1000", "0.02")}, decimal.Zero)

		if !s.CurrentValue.IsZero() {
			t.Errorf("Expected zero value, got %s", s.CurrentValue)
		}
		if !s.TotalProfit.Equal(d("-1000")) {
			t.Errorf("Expected profit -1000, got %s", s.TotalProfit)
		}
		if !s.ProfitPercentage.Equal(d("-100")) {
			t.Errorf("Expected -100%%, got %s", s.ProfitPercentage)
		}
		if s.PriceAvailable {
			t.Error("Expected price to be unavailable")
		}
	})
}

func TestCompute_Properties(t *testing.T) {
	txs := []model.Transaction{
		tx("btc", "1000", "0.02"),
		tx("btc", "250.50", "0.00417"),
		tx("btc", "75", "0.0011"),
		tx("btc", "12000", "0.31"),
	}
	prices := []string{"0.01", "1", "41000", "60000.55", "123456.78"}

	for _, p := range prices {
		price := d(p)
		s := Compute(txs, price)

		t.Run("profit is value minus invested at "+p, func(t *testing.T) {
			if !s.TotalProfit.Equal(s.CurrentValue.Sub(s.TotalInvested)) {
				t.Errorf("profit %s != value %s - invested %s", s.TotalProfit, s.CurrentValue, s.TotalInvested)
			}
		})

		t.Run("value is held times price at "+p, func(t *testing.T) {
			if !s.CurrentValue.Equal(s.TotalAssetHeld.Mul(price)) {
				t.Errorf("value %s != held %s * price %s", s.CurrentValue, s.TotalAssetHeld, price)
			}
		})

		t.Run("per-transaction profits sum to total at "+p, func(t *testing.T) {
			sum := decimal.Zero
			for _, x := range txs {
				sum = sum.Add(TransactionProfit(x, price))
			}
			if !sum.Equal(s.TotalProfit) {
				t.Errorf("sum of transaction profits %s != total %s", sum, s.TotalProfit)
			}
		})

		t.Run("average cost times held returns invested at "+p, func(t *testing.T) {
			back := s.AverageUnitCost.Mul(s.TotalAssetHeld)
			if back.Sub(s.TotalInvested).Abs().GreaterThan(d("0.000001")) {
				t.Errorf("avg %s * held %s = %s, want %s", s.AverageUnitCost, s.TotalAssetHeld, back, s.TotalInvested)
			}
		})
	}
}

func TestTransactionProfit(t *testing.T) {
	got := TransactionProfit(tx("btc", "1000", "0.02"), d("45000"))
	if !got.Equal(d("-100")) {
		t.Errorf("Expected -100, got %s", got)
	}
}

func TestComputeByAsset(t *testing.T) {
	txs := []model.Transaction{
		tx("eth", "300", "0.1"),
		tx("btc", "1000", "0.02"),
		tx("btc", "500", "0.01"),
		tx("sol", "100", "1"),
	}
	prices := map[string]decimal.Decimal{
		"btc": d("60000"),
		"eth": d("4000"),
	}

	snaps := ComputeByAsset(txs, prices)
	if len(snaps) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(snaps))
	}

	wantOrder := []string{"btc", "eth", "sol"}
	for i, id := range wantOrder {
		if snaps[i].AssetID != id {
			t.Errorf("snapshot %d: expected %s, got %s", i, id, snaps[i].AssetID)
		}
	}

	btc := snaps[0]
	if btc.TransactionCount != 2 || !btc.TotalAssetHeld.Equal(d("0.03")) || !btc.CurrentValue.Equal(d("1800")) {
		t.Errorf("Unexpected btc snapshot %+v", btc)
	}

	eth := snaps[1]
	if !eth.TotalProfit.Equal(d("100")) {
		t.Errorf("Expected eth profit 100, got %s", eth.TotalProfit)
	}

	sol := snaps[2]
	if sol.PriceAvailable {
		t.Error("Expected sol price to be unavailable")
	}
	if !sol.CurrentValue.IsZero() {
		t.Errorf("Expected sol value 0, got %s", sol.CurrentValue)
	}
}

func TestCombine(t *testing.T) {
	snaps := ComputeByAsset([]model.Transaction{
		tx("btc", "1000", "0.02"),
		tx("eth", "300", "0.1"),
	}, map[string]decimal.Decimal{"btc": d("60000"), "eth": d("4000")})

	c := Combine(snaps)

	if c.AssetCount != 2 {
		t.Errorf("Expected 2 assets, got %d", c.AssetCount)
	}
	if !c.TotalInvested.Equal(d("1300")) {
		t.Errorf("Expected invested 1300, got %s", c.TotalInvested)
	}
	if !c.CurrentValue.Equal(d("1600")) {
		t.Errorf("Expected value 1600, got %s", c.CurrentValue)
	}
	if !c.TotalProfit.Equal(d("300")) {
		t.Errorf("Expected profit 300, got %s", c.TotalProfit)
	}

	if !c.Complete || !c.UnpricedInvested.IsZero() {
		t.Errorf("Expected complete figures, got %+v", c)
	}

	empty := Combine(nil)
	if !empty.ProfitPercentage.IsZero() || empty.AssetCount != 0 || !empty.Complete {
		t.Errorf("Expected zero combined for no snapshots, got %+v", empty)
	}

	t.Run("unpriced asset is kept out of value and profit", func(t *testing.T) {
		snaps := ComputeByAsset([]model.Transaction{
			tx("btc", "1000", "0.02"),
			tx("sol", "1000", "10"),
		}, map[string]decimal.Decimal{"btc": d("60000")})

		c := Combine(snaps)

		if !c.TotalInvested.Equal(d("2000")) {
			t.Errorf("Expected invested 2000, got %s", c.TotalInvested)
		}
		if !c.UnpricedInvested.Equal(d("1000")) {
			t.Errorf("Expected unpriced invested 1000, got %s", c.UnpricedInvested)
		}
		if !c.CurrentValue.Equal(d("1200")) {
			t.Errorf("Expected value 1200, got %s", c.CurrentValue)
		}
		if !c.TotalProfit.Equal(d("200")) {
			t.Errorf("Expected profit 200, got %s", c.TotalProfit)
		}
		if !c.ProfitPercentage.Equal(d("20")) {
			t.Errorf("Expected 20%%, got %s", c.ProfitPercentage)
		}
		if c.Complete {
			t.Error("Expected figures to be marked incomplete")
		}
		if disp := c.Format("EUR"); !strings.Contains(disp.UnpricedInvested, "1,000.00") {
			t.Errorf("Expected unpriced amount in display, got '%s'", disp.UnpricedInvested)
		}
	})

	t.Run("nothing priced yields zero percentage", func(t *testing.T) {
		c := Combine(ComputeByAsset([]model.Transaction{tx("sol", "100", "1")}, nil))

		if !c.TotalProfit.IsZero() || !c.ProfitPercentage.IsZero() || !c.CurrentValue.IsZero() {
			t.Errorf("Expected zero value and profit, got %+v", c)
		}
	})
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]model.Transaction{tx("btc", "1000", "0.02")},
		map[string]decimal.Decimal{"btc": d("60000")}, "eur")

	if sum.Currency != "eur" {
		t.Errorf("Expected currency eur, got %s", sum.Currency)
	}
	if len(sum.Assets) != 1 || sum.Assets[0].Display == nil {
		t.Fatalf("Expected one asset with display, got %+v", sum.Assets)
	}
	if sum.Combined.Display == nil {
		t.Fatal("Expected combined display")
	}

	disp := sum.Assets[0].Display
	if disp.ProfitPercentage != "20.00%" {
		t.Errorf("Expected '20.00%%', got '%s'", disp.ProfitPercentage)
	}
	if disp.TotalAssetHeld != "0.02000000" {
		t.Errorf("Expected '0.02000000', got '%s'", disp.TotalAssetHeld)
	}
	if !strings.Contains(disp.CurrentValue, "1,200.00") {
		t.Errorf("Expected current value to contain '1,200.00', got '%s'", disp.CurrentValue)
	}
}

func TestFormatFiat(t *testing.T) {
	if got := FormatFiat(d("1234.565"), "EUR"); !strings.Contains(got, "1,234.57") {
		t.Errorf("Expected EUR rendering with grouping, got '%s'", got)
	}
	if got := FormatFiat(d("5"), "xyz"); got != "5.00 XYZ" {
		t.Errorf("Expected fallback '5.00 XYZ', got '%s'", got)
	}
}
