package testutil

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndewijer/cryptofolio/internal/database"
	"github.com/ndewijer/cryptofolio/internal/model"
)

// Layouts match the ones the repositories write.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// DefaultPassword is the password of users built without WithPassword.
const DefaultPassword = "correct-horse"

// UserBuilder provides a fluent interface for creating test users
type UserBuilder struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
}

// NewUser creates a UserBuilder with a unique email.
//
// Example usage:
//
//	user := testutil.NewUser().WithEmail("alice@example.com").Build(t, db)
func NewUser() *UserBuilder {
	return &UserBuilder{
		ID:        MakeID(),
		Email:     MakeEmail("user"),
		Password:  DefaultPassword,
		CreatedAt: time.Now().UTC(),
	}
}

// WithID sets a custom ID
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.ID = id
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.Email = email
	return b
}

// WithPassword sets the plain text password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.Password = password
	return b
}

// Build creates the user in the database and returns it.
func (b *UserBuilder) Build(t *testing.T, db *sql.DB) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(b.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}

	email := strings.ToLower(b.Email)
	_, err = db.Exec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, email, string(hash), b.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return model.User{
		ID:           b.ID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    b.CreatedAt,
	}
}

// CreateUser creates a user with default values.
func CreateUser(t *testing.T, db *sql.DB) model.User {
	t.Helper()
	return NewUser().Build(t, db)
}

// AssetBuilder provides a fluent interface for creating assets
type AssetBuilder struct {
	ID        string
	Name      string
	Symbol    string
	PriceURL  string
	PricePath string
}

// NewAsset creates an AssetBuilder with a unique symbol.
//
// Example usage:
//
//	eth := testutil.NewAsset().WithSymbol("ETH").WithPriceURL(feed.URL).Build(t, db)
func NewAsset() *AssetBuilder {
	return &AssetBuilder{
		ID:       MakeID(),
		Name:     MakeSymbolName("Coin"),
		Symbol:   MakeSymbol("C"),
		PriceURL: "http://127.0.0.1:1/price",
	}
}

// WithID sets a custom ID
func (b *AssetBuilder) WithID(id string) *AssetBuilder {
	b.ID = id
	return b
}

// WithName sets the asset name
func (b *AssetBuilder) WithName(name string) *AssetBuilder {
	b.Name = name
	return b
}

// WithSymbol sets the ticker symbol
func (b *AssetBuilder) WithSymbol(symbol string) *AssetBuilder {
	b.Symbol = symbol
	return b
}

// WithPriceURL sets the feed URL
func (b *AssetBuilder) WithPriceURL(url string) *AssetBuilder {
	b.PriceURL = url
	return b
}

// WithPricePath sets the jsonpath selecting the price
func (b *AssetBuilder) WithPricePath(path string) *AssetBuilder {
	b.PricePath = path
	return b
}

// Build creates the asset in the database and returns it.
func (b *AssetBuilder) Build(t *testing.T, db *sql.DB) model.Asset {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO asset (id, name, symbol, price_url, price_path) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Symbol, b.PriceURL, b.PricePath,
	)
	if err != nil {
		t.Fatalf("Failed to create test asset: %v", err)
	}

	return model.Asset{
		ID:        b.ID,
		Name:      b.Name,
		Symbol:    b.Symbol,
		PriceURL:  b.PriceURL,
		PricePath: b.PricePath,
	}
}

// DefaultAsset returns the asset seeded by the migrations.
func DefaultAsset(t *testing.T, db *sql.DB) model.Asset {
	t.Helper()

	var a model.Asset
	err := db.QueryRow(
		`SELECT id, name, symbol, price_url, price_path FROM asset WHERE id = ?`,
		database.DefaultAssetID,
	).Scan(&a.ID, &a.Name, &a.Symbol, &a.PriceURL, &a.PricePath)
	if err != nil {
		t.Fatalf("Failed to load default asset: %v", err)
	}
	return a
}

// TransactionBuilder provides a fluent interface for creating transactions
type TransactionBuilder struct {
	ID          string
	UserID      string
	AssetID     string
	FiatAmount  decimal.Decimal
	AssetAmount decimal.Decimal
	UnitPrice   decimal.Decimal
	Wallet      string
	Date        time.Time
	CreatedAt   time.Time
}

// NewTransaction creates a TransactionBuilder for userID on the default
// asset: 100.00 for 0.002 at 50000.00.
func NewTransaction(userID string) *TransactionBuilder {
	now := time.Now().UTC()
	return &TransactionBuilder{
		ID:          MakeID(),
		UserID:      userID,
		AssetID:     database.DefaultAssetID,
		FiatAmount:  decimal.RequireFromString("100.00"),
		AssetAmount: decimal.RequireFromString("0.002"),
		UnitPrice:   decimal.RequireFromString("50000.00"),
		Wallet:      "Exchange",
		Date:        now.Truncate(24 * time.Hour),
		CreatedAt:   now,
	}
}

// WithID sets a custom ID
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.ID = id
	return b
}

// WithAsset sets the asset
func (b *TransactionBuilder) WithAsset(assetID string) *TransactionBuilder {
	b.AssetID = assetID
	return b
}

// WithAmounts sets fiat amount, asset amount and unit price.
func (b *TransactionBuilder) WithAmounts(fiat, asset, price string) *TransactionBuilder {
	b.FiatAmount = decimal.RequireFromString(fiat)
	b.AssetAmount = decimal.RequireFromString(asset)
	b.UnitPrice = decimal.RequireFromString(price)
	return b
}

// WithWallet sets the wallet label
func (b *TransactionBuilder) WithWallet(wallet string) *TransactionBuilder {
	b.Wallet = wallet
	return b
}

// WithDate sets the purchase date
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.Date = date
	return b
}

// WithCreatedAt sets the creation time, which orders purchases on the same date.
func (b *TransactionBuilder) WithCreatedAt(createdAt time.Time) *TransactionBuilder {
	b.CreatedAt = createdAt
	return b
}

// Build creates the transaction in the database
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	query := `
		INSERT INTO "transaction" (id, user_id, asset_id, fiat_amount, asset_amount, unit_price, wallet, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.ID, b.UserID, b.AssetID,
		b.FiatAmount.String(), b.AssetAmount.String(), b.UnitPrice.String(),
		b.Wallet, b.Date.Format(dateLayout), b.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}

	return model.Transaction{
		ID:          b.ID,
		UserID:      b.UserID,
		AssetID:     b.AssetID,
		FiatAmount:  b.FiatAmount,
		AssetAmount: b.AssetAmount,
		UnitPrice:   b.UnitPrice,
		Wallet:      b.Wallet,
		Date:        b.Date,
		CreatedAt:   b.CreatedAt,
	}
}

// AssetPriceBuilder provides a fluent interface for creating stored prices
type AssetPriceBuilder struct {
	ID        string
	AssetID   string
	Price     decimal.Decimal
	FetchedAt time.Time
}

// NewAssetPrice creates an AssetPriceBuilder fetched now.
func NewAssetPrice(assetID string) *AssetPriceBuilder {
	return &AssetPriceBuilder{
		ID:        MakeID(),
		AssetID:   assetID,
		Price:     decimal.RequireFromString("60000"),
		FetchedAt: time.Now().UTC(),
	}
}

// WithPrice sets the price
func (b *AssetPriceBuilder) WithPrice(price string) *AssetPriceBuilder {
	b.Price = decimal.RequireFromString(price)
	return b
}

// WithFetchedAt sets the fetch time
func (b *AssetPriceBuilder) WithFetchedAt(fetchedAt time.Time) *AssetPriceBuilder {
	b.FetchedAt = fetchedAt
	return b
}

// Build creates the price in the database
func (b *AssetPriceBuilder) Build(t *testing.T, db *sql.DB) model.AssetPrice {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO asset_price (id, asset_id, price, fetched_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.AssetID, b.Price.String(), b.FetchedAt.Format(timestampLayout),
	)
	if err != nil {
		t.Fatalf("Failed to create asset price: %v", err)
	}

	return model.AssetPrice{
		ID:        b.ID,
		AssetID:   b.AssetID,
		Price:     b.Price,
		FetchedAt: b.FetchedAt,
	}
}

// ExpireSession moves the expiry of a stored session one minute into the
// past. Its token still decrypts; only the stored row says it has expired.
func ExpireSession(t *testing.T, db *sql.DB, sessionID string) {
	t.Helper()

	past := time.Now().UTC().Add(-time.Minute).Format(timestampLayout)
	result, err := db.Exec(`UPDATE session SET expires_at = ? WHERE id = ?`, past, sessionID)
	if err != nil {
		t.Fatalf("Failed to expire session: %v", err)
	}
	if n, _ := result.RowsAffected(); n != 1 {
		t.Fatalf("Expected to expire 1 session, updated %d", n)
	}
}
