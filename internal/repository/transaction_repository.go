package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
)

// TransactionRepository provides data access methods for the transaction table.
// Every query is scoped to a single user.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetTransactions retrieves all transactions of a user, newest first.
// Purchases on the same date are ordered by creation time, newest first.
// Returns an empty slice if the user has no transactions.
func (r *TransactionRepository) GetTransactions(userID string) ([]model.Transaction, error) {
	return r.FindTransactions(userID, model.TransactionFilter{})
}

// FindTransactions is GetTransactions narrowed by filter.
func (r *TransactionRepository) FindTransactions(userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := `
		SELECT id, user_id, asset_id, fiat_amount, asset_amount, unit_price, wallet, date, created_at
		FROM "transaction"
		WHERE user_id = ?
	`
	args := []any{userID}

	if filter.AssetID != "" {
		query += ` AND asset_id = ?`
		args = append(args, filter.AssetID)
	}
	if len(filter.Wallets) > 0 {
		placeholders := make([]string, len(filter.Wallets))
		for i, w := range filter.Wallets {
			placeholders[i] = "?"
			args = append(args, w)
		}
		query += ` AND wallet IN (` + strings.Join(placeholders, ",") + `)`
	}
	if filter.StartDate != nil {
		query += ` AND date >= ?`
		args = append(args, filter.StartDate.Format(dateLayout))
	}
	if filter.EndDate != nil {
		query += ` AND date <= ?`
		args = append(args, filter.EndDate.Format(dateLayout))
	}

	query += ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

// GetTransaction retrieves one transaction of a user.
// Returns ErrTransactionNotFound when it does not exist or belongs to someone else.
func (r *TransactionRepository) GetTransaction(userID, transactionID string) (model.Transaction, error) {
	query := `
		SELECT id, user_id, asset_id, fiat_amount, asset_amount, unit_price, wallet, date, created_at
		FROM "transaction"
		WHERE id = ? AND user_id = ?
	`

	t, err := scanTransaction(r.db.QueryRow(query, transactionID, userID))
	if err == sql.ErrNoRows {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// InsertTransaction stores t. A new ID and creation time are assigned when
// missing; the stored values are written back into t.
func (r *TransactionRepository) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}

	query := `
		INSERT INTO "transaction" (id, user_id, asset_id, fiat_amount, asset_amount, unit_price, wallet, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.AssetID,
		t.FiatAmount.String(),
		t.AssetAmount.String(),
		t.UnitPrice.String(),
		t.Wallet,
		t.Date.Format(dateLayout),
		t.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// DeleteTransaction removes a transaction of a user.
// Returns ErrTransactionNotFound if no such record exists for that user.
func (r *TransactionRepository) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	query := `DELETE FROM "transaction" WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, transactionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var dateStr, createdAtStr string

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.AssetID,
		&t.FiatAmount,
		&t.AssetAmount,
		&t.UnitPrice,
		&t.Wallet,
		&dateStr,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction table results: %w", err)
	}

	t.Date, err = ParseTime(dateStr)
	if err != nil || t.Date.IsZero() {
		return t, fmt.Errorf("failed to parse date: %w", err)
	}

	t.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil || t.CreatedAt.IsZero() {
		return t, fmt.Errorf("failed to parse date: %w", err)
	}

	return t, nil
}
