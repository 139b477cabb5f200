package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
)

// AssetRepository provides data access methods for the asset and asset_price tables.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new AssetRepository with the provided database connection.
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// GetAssets retrieves all assets ordered by symbol.
func (r *AssetRepository) GetAssets() ([]model.Asset, error) {
	query := `
		SELECT id, name, symbol, price_url, price_path
		FROM asset
		ORDER BY symbol ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset table: %w", err)
	}
	defer rows.Close()

	assets := []model.Asset{}
	for rows.Next() {
		var a model.Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.Symbol, &a.PriceURL, &a.PricePath); err != nil {
			return nil, fmt.Errorf("failed to scan asset table results: %w", err)
		}
		assets = append(assets, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset table: %w", err)
	}

	return assets, nil
}

// GetAsset retrieves one asset by ID.
// Returns ErrAssetNotFound if it does not exist.
func (r *AssetRepository) GetAsset(assetID string) (model.Asset, error) {
	query := `
		SELECT id, name, symbol, price_url, price_path
		FROM asset
		WHERE id = ?
	`

	var a model.Asset
	err := r.db.QueryRow(query, assetID).Scan(&a.ID, &a.Name, &a.Symbol, &a.PriceURL, &a.PricePath)
	if err == sql.ErrNoRows {
		return model.Asset{}, apperrors.ErrAssetNotFound
	}
	if err != nil {
		return model.Asset{}, fmt.Errorf("failed to scan asset table results: %w", err)
	}
	return a, nil
}

// GetAssetBySymbol retrieves one asset by its ticker symbol.
// Returns ErrAssetNotFound if it does not exist.
func (r *AssetRepository) GetAssetBySymbol(symbol string) (model.Asset, error) {
	query := `
		SELECT id, name, symbol, price_url, price_path
		FROM asset
		WHERE symbol = ?
	`

	var a model.Asset
	err := r.db.QueryRow(query, symbol).Scan(&a.ID, &a.Name, &a.Symbol, &a.PriceURL, &a.PricePath)
	if err == sql.ErrNoRows {
		return model.Asset{}, apperrors.ErrAssetNotFound
	}
	if err != nil {
		return model.Asset{}, fmt.Errorf("failed to scan asset table results: %w", err)
	}
	return a, nil
}

// InsertAsset stores a, assigning an ID when missing.
func (r *AssetRepository) InsertAsset(ctx context.Context, a *model.Asset) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO asset (id, name, symbol, price_url, price_path)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, a.ID, a.Name, a.Symbol, a.PriceURL, a.PricePath)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// InsertPrice records a successfully fetched price.
func (r *AssetRepository) InsertPrice(ctx context.Context, p *model.AssetPrice) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = now()
	}

	query := `
		INSERT INTO asset_price (id, asset_id, price, fetched_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.AssetID,
		p.Price.String(),
		p.FetchedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset_price: %w", err)
	}
	return nil
}

// GetLatestPrices returns the most recent stored price per asset, keyed by
// asset ID. Assets that were never priced are absent from the map.
func (r *AssetRepository) GetLatestPrices() (map[string]model.AssetPrice, error) {
	query := `
		SELECT ap.id, ap.asset_id, ap.price, ap.fetched_at
		FROM asset_price ap
		INNER JOIN (
			SELECT asset_id, MAX(fetched_at) AS latest
			FROM asset_price
			GROUP BY asset_id
		) l ON ap.asset_id = l.asset_id AND ap.fetched_at = l.latest
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset_price table: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]model.AssetPrice)
	for rows.Next() {
		var p model.AssetPrice
		var fetchedAtStr string
		if err := rows.Scan(&p.ID, &p.AssetID, &p.Price, &fetchedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan asset_price table results: %w", err)
		}
		p.FetchedAt, err = ParseTime(fetchedAtStr)
		if err != nil {
			return nil, err
		}
		prices[p.AssetID] = p
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset_price table: %w", err)
	}

	return prices, nil
}
