// Package middleware provides HTTP middleware for authentication, request
// validation and request logging.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/validation"
)

// ValidateUUIDMiddleware validates that the uuid URL parameter is present and is a valid UUID.
// Returns 400 Bad Request if it is missing or invalid.
//
// Example usage in router:
//
//	r.Route("/{uuid}", func(r chi.Router) {
//	    r.Use(middleware.ValidateUUIDMiddleware)
//	    r.Delete("/", handler.DeleteTransaction)
//	})
func ValidateUUIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "uuid")

		if id == "" {
			response.RespondError(w, http.StatusBadRequest, "valid UUID is required", "")
			return
		}

		if err := validation.ValidateUUID(id); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid UUID format", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
