package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Error carries one message per offending field.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, field := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

func errorOrNil(fields map[string]string) error {
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date at UTC midnight.
func ParseDate(str string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(str))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return t.UTC(), nil
}
