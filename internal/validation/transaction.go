package validation

import (
	"github.com/ndewijer/cryptofolio/internal/api/request"
	"github.com/ndewijer/cryptofolio/internal/calculator"
)

// MaxWalletLength bounds the free-text wallet/exchange label.
const MaxWalletLength = 100

// ValidateCreateTransaction validates a transaction creation request.
//
// Fields:
//   - assetId: optional, must be a UUID when given
//   - date: required, YYYY-MM-DD
//   - wallet: optional, at most 100 characters
//   - fiatAmount, assetAmount, unitPrice: at least two must be positive
//     numbers; the third is derived
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)

	validatePurchaseFields(errors, req.AssetID, req.Wallet, req.Date)

	fields := calculator.Fields{
		FiatAmount:  req.FiatAmount,
		AssetAmount: req.AssetAmount,
		UnitPrice:   req.UnitPrice,
	}
	if fields.Filled() < 2 {
		errors["amounts"] = "at least two of fiatAmount, assetAmount and unitPrice are required"
	}

	return errorOrNil(errors)
}

// ValidateAmounts checks that all three amounts are positive numbers. It is
// applied after reconciliation, right before a transaction is stored.
func ValidateAmounts(fields calculator.Fields) error {
	errors := make(map[string]string)

	for _, f := range []calculator.Field{calculator.FieldFiatAmount, calculator.FieldAssetAmount, calculator.FieldUnitPrice} {
		if _, ok := calculator.Value(fields.Get(f)); !ok {
			errors[f.String()] = f.String() + " must be a positive number"
		}
	}

	return errorOrNil(errors)
}

func validatePurchaseFields(errors map[string]string, assetID, wallet, date string) {
	if assetID != "" {
		if err := ValidateUUID(assetID); err != nil {
			errors["assetId"] = err.Error()
		}
	}

	if date == "" {
		errors["date"] = "date is required"
	} else if _, err := ParseDate(date); err != nil {
		errors["date"] = err.Error()
	}

	if len([]rune(wallet)) > MaxWalletLength {
		errors["wallet"] = "wallet must be at most 100 characters"
	}
}
