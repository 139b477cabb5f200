package testutil

import (
	"database/sql"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndewijer/cryptofolio/internal/logging"
	"github.com/ndewijer/cryptofolio/internal/repository"
	"github.com/ndewijer/cryptofolio/internal/service"
)

// DefaultSessionTTL is the session lifetime of NewTestAuthService.
const DefaultSessionTTL = time.Hour

// NewTestAuthService builds an AuthService with a fresh key and the
// cheapest bcrypt cost.
func NewTestAuthService(t *testing.T, db *sql.DB) *service.AuthService {
	t.Helper()
	return NewTestAuthServiceWithTTL(t, db, DefaultSessionTTL)
}

// NewTestAuthServiceWithTTL is NewTestAuthService with a custom session lifetime.
func NewTestAuthServiceWithTTL(t *testing.T, db *sql.DB, ttl time.Duration) *service.AuthService {
	t.Helper()

	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Failed to generate session key: %v", err)
	}

	return service.NewAuthService(
		repository.NewUserRepository(db),
		&key,
		ttl,
		logging.Discard(),
		service.WithPasswordCost(bcrypt.MinCost),
	)
}

// NewTestPriceService builds a PriceService around fetcher. Polling uses
// the seeded BTC asset as primary and no delay between cycle items.
func NewTestPriceService(t *testing.T, db *sql.DB, fetcher service.PriceFetcher) *service.PriceService {
	t.Helper()

	return service.NewPriceService(
		repository.NewAssetRepository(db),
		fetcher,
		service.PollSchedule{
			PrimarySymbol: "BTC",
			Primary:       "@every 1h",
			Cycle:         "@every 1h",
		},
		logging.Discard(),
	)
}

// NewTestPortfolioService builds a PortfolioService valuing in EUR.
func NewTestPortfolioService(t *testing.T, db *sql.DB, prices service.PriceBook) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewTransactionRepository(db),
		repository.NewAssetRepository(db),
		prices,
		"EUR",
		logging.Discard(),
	)
}

// NewTestTransactionService builds a TransactionService. portfolio may be nil.
func NewTestTransactionService(t *testing.T, db *sql.DB, portfolio *service.PortfolioService) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		repository.NewTransactionRepository(db),
		repository.NewAssetRepository(db),
		portfolio,
		logging.Discard(),
	)
}

// NewTestDraftService builds a DraftService storing through a
// TransactionService without portfolio cache.
func NewTestDraftService(t *testing.T, db *sql.DB, window time.Duration) *service.DraftService {
	t.Helper()

	drafts := service.NewDraftService(NewTestTransactionService(t, db, nil), window, logging.Discard())
	t.Cleanup(drafts.Close)
	return drafts
}

func NewTestAssetService(t *testing.T, db *sql.DB) *service.AssetService {
	t.Helper()
	return service.NewAssetService(repository.NewAssetRepository(db))
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeEmail generates a unique email address for testing.
//
// Example usage:
//
//	email := testutil.MakeEmail("alice")
//	// Returns: "alice.x7k2q9@example.com"
func MakeEmail(base string) string {
	if base == "" {
		base = "user"
	}
	return base + "." + strings.ToLower(randomAlphanumeric(6)) + "@example.com"
}

// MakeSymbol generates a ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("ETH")
//	// Returns: "ETH1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakeSymbolName generates a unique asset name for testing.
//
// Example usage:
//
//	name := testutil.MakeSymbolName("Coin")
//	// Returns: "Coin XYZ789"
func MakeSymbolName(base string) string {
	if base == "" {
		base = "Symbol"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
