package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sweetpotato0/kjm-gateway/middleware"
	"github.com/sweetpotato0/kjm-gateway/middleware/enricher"
)

// RequestLogger logs one line per handled request
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware. A nil logger
// disables logging.
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Wrap logs method, path, status and duration once the handler returns.
// Query strings are not logged; they may carry prompts.
func (m *RequestLogger) Wrap(next http.Handler) http.Handler {
	if m.logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewStatusRecorder(w)

		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.Status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		m.logger.LogAttrs(r.Context(), level, "request handled",
			slog.String("request_id", enricher.RequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.Status),
			slog.Int("bytes", rec.Bytes),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
