package middleware

import (
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Logger returns a middleware that logs one line per HTTP request.
// Server errors are logged at error level, client errors at warn level.
func Logger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	// Strip CR/LF from user-supplied values to prevent log injection.
	sanitize := strings.NewReplacer("\n", "", "\r", "").Replace

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			entry := logger.WithFields(logrus.Fields{
				"method":   sanitize(r.Method),
				"path":     sanitize(r.URL.Path),
				"status":   wrapped.statusCode,
				"duration": time.Since(start),
			})
			if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
				entry = entry.WithField("request_id", reqID)
			}

			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				entry.Error("Request failed")
			case wrapped.statusCode >= http.StatusBadRequest:
				entry.Warn("Request rejected")
			default:
				entry.Info("Request handled")
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
