// Package logging builds the structured logger shared by the server,
// the price poller and the request middleware.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to stdout at the given level.
// Unknown levels fall back to info; format "json" selects the JSON formatter,
// anything else the text formatter.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(os.Stdout, level, format)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(out io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
