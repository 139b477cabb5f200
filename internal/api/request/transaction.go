package request

// CreateTransactionRequest is the body of POST /api/transaction.
// Amounts are decimal strings as typed; any two of the three suffice and the
// third is derived. AssetID defaults to the seeded asset, Wallet to "Exchange".
type CreateTransactionRequest struct {
	AssetID     string `json:"assetId"`
	FiatAmount  string `json:"fiatAmount"`
	AssetAmount string `json:"assetAmount"`
	UnitPrice   string `json:"unitPrice"`
	Wallet      string `json:"wallet"`
	Date        string `json:"date"`
}
