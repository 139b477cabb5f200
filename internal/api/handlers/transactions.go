package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/cryptofolio/internal/api/request"
	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/service"
	"github.com/ndewijer/cryptofolio/internal/validation"
)

// TransactionHandler handles HTTP requests for transaction endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the transactionService. Every route acts on the
// signed-in user's own transactions.
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// Transactions handles GET requests to list the user's purchases, newest first.
//
// Endpoint: GET /api/transaction
// Query Parameters:
//   - assetId: only purchases of this asset
//   - wallet: comma-separated wallet labels
//   - startDate, endDate: inclusive date bounds (YYYY-MM-DD)
//   - limit: at most this many rows (1-1000)
//
// Response: 200 OK with array of model.Transaction
// Error: 400 Bad Request if a filter is invalid
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter, err := request.ParseTransactionFilters(q.Get("assetId"), q.Get("wallet"), q.Get("startDate"), q.Get("endDate"), q.Get("limit"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	transactions, err := h.transactionService.GetTransactions(session.UserID, *filter)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransactions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single transaction by ID.
//
// Endpoint: GET /api/transaction/{uuid}
// Response: 200 OK with model.Transaction
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if the user has no such transaction
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	transaction, err := h.transactionService.GetTransaction(session.UserID, chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// CreateTransaction handles POST requests to create a new purchase.
// Any two of fiatAmount, assetAmount and unitPrice are enough; the third is
// derived.
//
// Endpoint: POST /api/transaction
// Request Body: CreateTransactionRequest (assetId, fiatAmount, assetAmount, unitPrice, wallet, date)
// Response: 201 Created with model.Transaction
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if the asset does not exist
// Error: 500 Internal Server Error if creation fails
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateTransaction(req); err != nil {
		respondValidation(w, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(r.Context(), session.UserID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCreateTransaction)
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// DeleteTransaction handles DELETE requests to remove a purchase.
//
// Endpoint: DELETE /api/transaction/{uuid}
// Response: 204 No Content on successful deletion
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if the user has no such transaction
// Error: 500 Internal Server Error if deletion fails
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	err := h.transactionService.DeleteTransaction(r.Context(), session.UserID, chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToDeleteTransaction)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
