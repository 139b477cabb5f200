package validation

import (
	"fmt"

	"github.com/ndewijer/cryptofolio/internal/api/request"
	"github.com/ndewijer/cryptofolio/internal/calculator"
)

// ValidateEditDraft checks that the edited field is one of the three amounts.
func ValidateEditDraft(req request.EditDraftRequest) error {
	if _, ok := calculator.ParseField(req.Field); !ok {
		return &Error{Fields: map[string]string{
			"field": fmt.Sprintf("invalid field: %s", req.Field),
		}}
	}
	return nil
}

// ValidateSubmitDraft validates the non-amount fields of a draft submission.
func ValidateSubmitDraft(req request.SubmitDraftRequest) error {
	errors := make(map[string]string)
	validatePurchaseFields(errors, req.AssetID, req.Wallet, req.Date)
	return errorOrNil(errors)
}
