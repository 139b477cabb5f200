package handlers

import (
	"net/http"

	"github.com/ndewijer/cryptofolio/internal/api/request"
	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/service"
	"github.com/ndewijer/cryptofolio/internal/validation"
)

// DraftHandler exposes the signed-in user's debounced purchase draft.
type DraftHandler struct {
	draftService *service.DraftService
}

// NewDraftHandler creates a new DraftHandler.
func NewDraftHandler(draftService *service.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

// Get returns the current draft.
//
// Endpoint: GET /api/draft
// Response: 200 OK with service.DraftState
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	response.RespondJSON(w, http.StatusOK, h.draftService.Get(session.UserID))
}

// Edit records one edit. Derivation of the missing amount runs once the
// user pauses, so the returned state may still be pending.
//
// Endpoint: PUT /api/draft
// Request Body: EditDraftRequest (field, value)
// Response: 200 OK with service.DraftState
// Error: 400 Bad Request if the field is not one of the three amounts
func (h *DraftHandler) Edit(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.EditDraftRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateEditDraft(req); err != nil {
		respondValidation(w, err)
		return
	}

	state, err := h.draftService.Edit(session.UserID, req.Field, req.Value)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrUnknownField)
		return
	}

	response.RespondJSON(w, http.StatusOK, state)
}

// Cancel empties the draft.
//
// Endpoint: DELETE /api/draft
// Response: 204 No Content
func (h *DraftHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	h.draftService.Cancel(session.UserID)
	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Submit stores the draft as a purchase and resets it.
//
// Endpoint: POST /api/draft/submit
// Request Body: SubmitDraftRequest (assetId, wallet, date)
// Response: 201 Created with model.Transaction
// Error: 400 Bad Request if the draft is incomplete or validation fails
// Error: 404 Not Found if the asset does not exist
func (h *DraftHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.SubmitDraftRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateSubmitDraft(req); err != nil {
		respondValidation(w, err)
		return
	}

	transaction, err := h.draftService.Submit(r.Context(), session.UserID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCreateTransaction)
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}
