package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/cryptofolio/internal/model"
)

const (
	defaultLimit = 0 // all rows
	maxLimit     = 1000
)

// ParseTransactionFilters extracts and validates transaction list filters
// from query parameters. All parameters are optional.
//
// Validation rules:
//   - assetId: must be a UUID
//   - wallet: comma-separated, matched exactly
//   - startDate/endDate: YYYY-MM-DD or RFC3339, start not after end
//   - limit: between 1 and 1000; absent means no limit
func ParseTransactionFilters(assetIDParam, walletParam, startDateParam, endDateParam, limitParam string) (*model.TransactionFilter, error) {
	filter := &model.TransactionFilter{Limit: defaultLimit}

	if assetIDParam != "" {
		if _, err := uuid.Parse(assetIDParam); err != nil {
			return nil, fmt.Errorf("invalid assetId: %s", assetIDParam)
		}
		filter.AssetID = assetIDParam
	}

	if walletParam != "" {
		for _, w := range strings.Split(walletParam, ",") {
			if w = strings.TrimSpace(w); w != "" {
				filter.Wallets = append(filter.Wallets, w)
			}
		}
	}

	if startDateParam != "" {
		t, err := parseFilterTime(startDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate: %w", err)
		}
		filter.StartDate = &t
	}

	if endDateParam != "" {
		t, err := parseFilterTime(endDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate: %w", err)
		}
		filter.EndDate = &t
	}

	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, fmt.Errorf("invalid date range: startDate is after endDate")
	}

	if limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return nil, fmt.Errorf("invalid limit: must be a number")
		}
		if limit < 1 || limit > maxLimit {
			return nil, fmt.Errorf("invalid limit: must be between 1 and %d", maxLimit)
		}
		filter.Limit = limit
	}

	return filter, nil
}

// parseFilterTime accepts YYYY-MM-DD and RFC3339.
func parseFilterTime(str string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date or datetime", str)
}
