package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/service"
)

// AssetHandler serves asset reference data and their prices.
type AssetHandler struct {
	assetService *service.AssetService
	priceService *service.PriceService
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assetService *service.AssetService, priceService *service.PriceService) *AssetHandler {
	return &AssetHandler{
		assetService: assetService,
		priceService: priceService,
	}
}

// Assets lists every tracked asset.
//
// Endpoint: GET /api/asset
// Response: 200 OK with array of model.Asset
func (h *AssetHandler) Assets(w http.ResponseWriter, _ *http.Request) {
	assets, err := h.assetService.GetAssets()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveAssets.Error(), err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, assets)
}

// Prices lists the last known price of every asset. Assets that were never
// priced are listed with available=false.
//
// Endpoint: GET /api/price
// Response: 200 OK with array of model.LatestPrice
func (h *AssetHandler) Prices(w http.ResponseWriter, _ *http.Request) {
	prices, err := h.priceService.LatestPrices()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveAssets.Error(), err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, prices)
}

// RefreshPrice fetches the price of one asset right away.
//
// Endpoint: POST /api/price/{uuid}/refresh
// Response: 200 OK with model.AssetPrice
// Error: 404 Not Found if the asset does not exist
// Error: 502 Bad Gateway if the feed fails; the previous price stays in effect
func (h *AssetHandler) RefreshPrice(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "uuid")

	price, err := h.priceService.RefreshAsset(r.Context(), assetID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRefreshPrice)
		return
	}
	response.RespondJSON(w, http.StatusOK, price)
}
