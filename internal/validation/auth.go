package validation

import (
	"net/mail"
	"strings"

	"github.com/ndewijer/cryptofolio/internal/api/request"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ValidateCredentials validates sign-up and sign-in input.
func ValidateCredentials(req request.CredentialsRequest) error {
	errors := make(map[string]string)

	email := strings.TrimSpace(req.Email)
	if email == "" {
		errors["email"] = "email is required"
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errors["email"] = "invalid email address"
	}

	if len(req.Password) < MinPasswordLength {
		errors["password"] = "password must be at least 6 characters"
	}

	return errorOrNil(errors)
}
