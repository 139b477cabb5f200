package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ndewijer/cryptofolio/internal/database"
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion reports the application version and the schema state.
func (s *SystemService) CheckVersion(ctx context.Context) (model.VersionInfo, error) {
	info := model.VersionInfo{AppVersion: version.Version}

	current, pending, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return info, err
	}

	info.DbVersion = strconv.FormatInt(current, 10)
	info.MigrationNeeded = pending
	if pending {
		msg := fmt.Sprintf("database schema at version %d has pending migrations", current)
		info.MigrationMessage = &msg
	}
	return info, nil
}
