package service

import (
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/repository"
)

// AssetService exposes the asset reference data.
type AssetService struct {
	assetRepo *repository.AssetRepository
}

// NewAssetService creates a new AssetService.
func NewAssetService(assetRepo *repository.AssetRepository) *AssetService {
	return &AssetService{assetRepo: assetRepo}
}

// GetAssets returns all assets ordered by symbol.
func (s *AssetService) GetAssets() ([]model.Asset, error) {
	return s.assetRepo.GetAssets()
}

// GetAsset returns one asset.
func (s *AssetService) GetAsset(assetID string) (model.Asset, error) {
	return s.assetRepo.GetAsset(assetID)
}
