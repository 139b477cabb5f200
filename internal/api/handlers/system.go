package handlers

import (
	"net/http"

	"github.com/ndewijer/cryptofolio/internal/api/response"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health checks the health of the system and database connectivity
//
// Endpoint: GET /api/system/health
// Response: 200 OK with HealthResponse
// Error: 503 Service Unavailable if the database cannot be reached
func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	if err := h.systemService.CheckHealth(); err != nil {
		response.RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		})
		return
	}

	response.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Database: "connected",
	})
}

// Version handles GET requests to retrieve version information.
// Returns the application version, the schema version and whether migrations are pending.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with model.VersionInfo
// Error: 500 Internal Server Error if version check fails
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	info, err := h.systemService.CheckVersion(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetVersionInfo.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, info)
}
