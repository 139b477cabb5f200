package handlers

import (
	"net/http"

	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/service"
)

// PortfolioHandler serves the signed-in user's portfolio snapshot.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// Summary returns one snapshot per asset plus the combined totals.
//
// Endpoint: GET /api/portfolio/summary
// Response: 200 OK with portfolio.Summary
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	summary, err := h.portfolioService.Summary(session.UserID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetPortfolioSummary.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// Transactions returns every purchase valued at the current price.
//
// Endpoint: GET /api/portfolio/transactions
// Response: 200 OK with array of model.TransactionProfit
func (h *PortfolioHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	profits, err := h.portfolioService.TransactionProfits(session.UserID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetPortfolioSummary.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, profits)
}
