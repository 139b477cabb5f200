package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist
	// for the requesting user.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAssetNotFound indicates that an asset with the given ID does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUserNotFound indicates that no user is registered with the given email.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound indicates that the session referenced by a token no longer exists.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPriceUnavailable indicates that no price is known yet for an asset.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Authentication errors are returned by the identity layer. They are surfaced
// as form-level messages and are never retried.
var (
	// ErrInvalidCredentials indicates a sign-in with an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken indicates a sign-up with an email that is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrSessionExpired indicates a token that is malformed, expired or revoked.
	ErrSessionExpired = errors.New("session expired or invalid")

	// ErrUnauthorized indicates a request without a session.
	ErrUnauthorized = errors.New("authentication required")
)

// Feed errors.
var (
	// ErrFeedUnavailable indicates that the price feed for one asset could not
	// produce a price. The previously known price stays in effect.
	ErrFeedUnavailable = errors.New("price feed unavailable")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrIncompleteDraft indicates a draft submitted without all three amounts filled.
	ErrIncompleteDraft = errors.New("draft is incomplete")

	// ErrUnknownField indicates a draft edit for a field that does not exist.
	ErrUnknownField = errors.New("unknown draft field")

	ErrInvalidTransactionID = errors.New("transaction ID is required")
	ErrInvalidAssetID       = errors.New("asset ID is required")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToCreateTransaction    = errors.New("failed to create transaction")
	ErrFailedToDeleteTransaction    = errors.New("failed to delete transaction")
	ErrFailedToRetrieveAssets       = errors.New("failed to retrieve assets")
	ErrFailedToGetPortfolioSummary  = errors.New("failed to get portfolio summary")
	ErrFailedToRefreshPrice         = errors.New("failed to refresh price")
	ErrFailedToGetVersionInfo       = errors.New("failed to get version information")
	ErrFailedToSignUp               = errors.New("failed to sign up")
	ErrFailedToSignIn               = errors.New("failed to sign in")
	ErrFailedToSignOut              = errors.New("failed to sign out")
)
