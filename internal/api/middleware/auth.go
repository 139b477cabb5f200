package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
)

type contextKey struct{}

var sessionKey contextKey

// SessionResolver turns a bearer token into the session it stands for.
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*model.Session, error)
}

// RequireSession rejects requests without a valid bearer token with 401 and
// stores the resolved session in the request context otherwise.
//
// Example usage in router:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(middleware.RequireSession(authService))
//	    r.Get("/portfolio/summary", handler.Summary)
//	})
func RequireSession(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				response.RespondError(w, http.StatusUnauthorized, apperrors.ErrUnauthorized.Error(), "missing bearer token")
				return
			}

			session, err := resolver.CurrentSession(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperrors.ErrSessionExpired) {
					response.RespondError(w, http.StatusUnauthorized, apperrors.ErrSessionExpired.Error(), "")
					return
				}
				response.RespondError(w, http.StatusInternalServerError, "failed to resolve session", err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*model.Session)
	return session, ok && session != nil
}
