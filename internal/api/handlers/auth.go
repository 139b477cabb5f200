package handlers

import (
	"net/http"

	"github.com/ndewijer/cryptofolio/internal/api/middleware"
	"github.com/ndewijer/cryptofolio/internal/api/request"
	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/service"
	"github.com/ndewijer/cryptofolio/internal/validation"
)

// AuthHandler handles sign-up, sign-in and sign-out.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUp registers a new account.
//
// Endpoint: POST /api/auth/signup
// Request Body: CredentialsRequest (email, password)
// Response: 201 Created with model.User
// Error: 400 Bad Request if validation fails
// Error: 409 Conflict if the email is already registered
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CredentialsRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCredentials(req); err != nil {
		respondValidation(w, err)
		return
	}

	user, err := h.authService.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToSignUp)
		return
	}

	response.RespondJSON(w, http.StatusCreated, user)
}

// SignIn opens a session and returns its bearer token.
//
// Endpoint: POST /api/auth/signin
// Request Body: CredentialsRequest (email, password)
// Response: 200 OK with model.SessionToken
// Error: 401 Unauthorized if the credentials do not match
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CredentialsRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.Email == "" || req.Password == "" {
		response.RespondError(w, http.StatusBadRequest, "validation failed", map[string]string{
			"credentials": "email and password are required",
		})
		return
	}

	token, err := h.authService.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToSignIn)
		return
	}

	response.RespondJSON(w, http.StatusOK, token)
}

// SignOut ends the session of the presented token.
//
// Endpoint: POST /api/auth/signout
// Response: 204 No Content
// Error: 401 Unauthorized if the token is invalid
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(r.Context(), middleware.BearerToken(r)); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToSignOut)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Session returns the current session.
//
// Endpoint: GET /api/auth/session
// Response: 200 OK with model.Session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	response.RespondJSON(w, http.StatusOK, session)
}
