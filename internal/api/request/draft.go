package request

// ReconcileRequest holds the three calculator inputs as typed.
type ReconcileRequest struct {
	FiatAmount  string `json:"fiatAmount"`
	AssetAmount string `json:"assetAmount"`
	UnitPrice   string `json:"unitPrice"`
}

// EditDraftRequest records one keystroke-level edit of a draft field.
type EditDraftRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// SubmitDraftRequest carries the non-amount fields of a purchase.
type SubmitDraftRequest struct {
	AssetID string `json:"assetId"`
	Wallet  string `json:"wallet"`
	Date    string `json:"date"`
}
