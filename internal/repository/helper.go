package repository

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	// Fixed-width fractions keep stored timestamps sortable as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

func now() time.Time {
	return time.Now().UTC()
}

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse(dateLayout, str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}
