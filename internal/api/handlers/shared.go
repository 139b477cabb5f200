// Package handlers adapts HTTP requests to the service layer.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ndewijer/cryptofolio/internal/api/middleware"
	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/validation"
)

// maxBodyBytes bounds request bodies; every accepted body is a small form.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T. Unknown fields are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var req T
	if r.Body == nil {
		return req, errors.New("request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

// currentSession returns the session stored by the auth middleware.
// It writes a 401 and returns false when there is none.
func currentSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.RespondError(w, http.StatusUnauthorized, apperrors.ErrUnauthorized.Error(), "")
		return nil, false
	}
	return session, true
}

// respondServiceError maps a service error to its HTTP status. fallback is
// the message of unexpected errors, which are reported as 500.
func respondServiceError(w http.ResponseWriter, err error, fallback error) {
	var vErr *validation.Error

	switch {
	case errors.Is(err, apperrors.ErrIncompleteDraft):
		var details any = err.Error()
		if errors.As(err, &vErr) {
			details = vErr.Fields
		}
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrIncompleteDraft.Error(), details)
	case errors.As(err, &vErr):
		response.RespondError(w, http.StatusBadRequest, "validation failed", vErr.Fields)
	case errors.Is(err, apperrors.ErrUnknownField):
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrUnknownField.Error(), err.Error())
	case errors.Is(err, apperrors.ErrInvalidCredentials),
		errors.Is(err, apperrors.ErrSessionExpired),
		errors.Is(err, apperrors.ErrUnauthorized):
		response.RespondError(w, http.StatusUnauthorized, err.Error(), "")
	case errors.Is(err, apperrors.ErrEmailTaken):
		response.RespondError(w, http.StatusConflict, apperrors.ErrEmailTaken.Error(), "")
	case errors.Is(err, apperrors.ErrTransactionNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrTransactionNotFound.Error(), "")
	case errors.Is(err, apperrors.ErrAssetNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrAssetNotFound.Error(), "")
	case errors.Is(err, apperrors.ErrFeedUnavailable):
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrFeedUnavailable.Error(), err.Error())
	default:
		response.RespondError(w, http.StatusInternalServerError, fallback.Error(), err.Error())
	}
}

// respondValidation writes a 400 for a failed request validation.
func respondValidation(w http.ResponseWriter, err error) {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", vErr.Fields)
		return
	}
	response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
}
