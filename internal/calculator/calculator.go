// Package calculator reconciles the three amounts of a purchase being
// composed: given any two of fiat amount, asset amount and unit price it
// derives the third.
//
// A field counts as filled only when it parses to a value strictly greater
// than zero. Derivation happens only when exactly two fields are filled, so a
// fully typed form is never overwritten and a derived value never triggers a
// second derivation.
package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rounding applied to derived values.
const (
	FiatPlaces  int32 = 2
	AssetPlaces int32 = 8
	PricePlaces int32 = 2
)

// Input bounds. Anything longer or outside them counts as not filled, so an
// exponent like 1e3000000 never expands into a huge string.
const (
	maxInputLength    = 64
	maxIntegerDigits  = 15
	maxFractionDigits = 18
)

// Field identifies one of the three reconciled amounts.
type Field int

const (
	FieldNone Field = iota
	FieldFiatAmount
	FieldAssetAmount
	FieldUnitPrice
)

var fieldNames = map[Field]string{
	FieldNone:        "",
	FieldFiatAmount:  "fiatAmount",
	FieldAssetAmount: "assetAmount",
	FieldUnitPrice:   "unitPrice",
}

// String returns the JSON name of the field.
func (f Field) String() string {
	return fieldNames[f]
}

// ParseField maps a JSON field name to a Field.
func ParseField(name string) (Field, bool) {
	for f, n := range fieldNames {
		if f != FieldNone && n == name {
			return f, true
		}
	}
	return FieldNone, false
}

// Fields holds the amounts exactly as typed.
type Fields struct {
	FiatAmount  string `json:"fiatAmount"`
	AssetAmount string `json:"assetAmount"`
	UnitPrice   string `json:"unitPrice"`
}

// Get returns the raw value of a field.
func (f Fields) Get(field Field) string {
	switch field {
	case FieldFiatAmount:
		return f.FiatAmount
	case FieldAssetAmount:
		return f.AssetAmount
	case FieldUnitPrice:
		return f.UnitPrice
	}
	return ""
}

// Set replaces the raw value of a field. Unknown fields are ignored.
func (f *Fields) Set(field Field, value string) {
	switch field {
	case FieldFiatAmount:
		f.FiatAmount = value
	case FieldAssetAmount:
		f.AssetAmount = value
	case FieldUnitPrice:
		f.UnitPrice = value
	}
}

// Filled reports how many fields hold a positive number.
func (f Fields) Filled() int {
	n := 0
	for _, s := range []string{f.FiatAmount, f.AssetAmount, f.UnitPrice} {
		if _, ok := Value(s); ok {
			n++
		}
	}
	return n
}

// Result is the outcome of one reconciliation pass.
// Derived is FieldNone when nothing was computed.
type Result struct {
	Fields  Fields `json:"fields"`
	Derived Field  `json:"-"`
}

// DerivedName is the JSON name of the derived field, empty when none.
func (r Result) DerivedName() string {
	return r.Derived.String()
}

// Value parses a raw field. ok is false for blank, unparsable, zero or
// negative input, and for values with more than 15 integer or 18 fraction
// digits.
func Value(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxInputLength {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	if d.Exponent() < -maxFractionDigits || int64(d.NumDigits())+int64(d.Exponent()) > maxIntegerDigits {
		return decimal.Zero, false
	}
	return d, true
}

// Reconcile derives the missing field when exactly two are filled.
// Any other fill state returns the input unchanged.
func Reconcile(in Fields) Result {
	fiat, hasFiat := Value(in.FiatAmount)
	asset, hasAsset := Value(in.AssetAmount)
	price, hasPrice := Value(in.UnitPrice)

	if in.Filled() != 2 {
		return Result{Fields: in, Derived: FieldNone}
	}

	out := in
	var derived decimal.Decimal
	var field Field
	var places int32

	switch {
	case !hasPrice:
		derived, field, places = fiat.DivRound(asset, PricePlaces), FieldUnitPrice, PricePlaces
	case !hasAsset:
		derived, field, places = fiat.DivRound(price, AssetPlaces), FieldAssetAmount, AssetPlaces
	case !hasFiat:
		derived, field, places = asset.Mul(price).Round(FiatPlaces), FieldFiatAmount, FiatPlaces
	}

	// A value that rounds away to nothing would leave the form in the same
	// two-filled state; keep the field as typed instead.
	if !derived.IsPositive() {
		return Result{Fields: in, Derived: FieldNone}
	}

	out.Set(field, derived.StringFixed(places))
	return Result{Fields: out, Derived: field}
}
