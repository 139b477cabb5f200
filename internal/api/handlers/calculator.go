package handlers

import (
	"net/http"

	"github.com/ndewijer/cryptofolio/internal/api/request"
	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/calculator"
)

// ReconcileResponse is the result of a stateless reconciliation.
// Derived names the computed field and is empty when nothing was computed.
type ReconcileResponse struct {
	Fields  calculator.Fields `json:"fields"`
	Derived string            `json:"derived,omitempty"`
}

// Reconcile derives the missing amount of a purchase form.
//
// Endpoint: POST /api/calculator/reconcile
// Request Body: ReconcileRequest (fiatAmount, assetAmount, unitPrice)
// Response: 200 OK with ReconcileResponse
func Reconcile(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ReconcileRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res := calculator.Reconcile(calculator.Fields{
		FiatAmount:  req.FiatAmount,
		AssetAmount: req.AssetAmount,
		UnitPrice:   req.UnitPrice,
	})

	response.RespondJSON(w, http.StatusOK, ReconcileResponse{
		Fields:  res.Fields,
		Derived: res.DerivedName(),
	})
}
