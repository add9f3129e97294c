package errorhandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/sweetpotato0/kjm-gateway/middleware"
)

// ErrorHandlerFunc writes the response for a recovered panic
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// ErrorHandler recovers panics raised further down the chain
type ErrorHandler struct {
	handler ErrorHandlerFunc
	logger  *slog.Logger
}

// NewErrorHandler creates a panic recovery middleware. A nil handler answers
// with a bare 500.
func NewErrorHandler(handler ErrorHandlerFunc, logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{handler: handler, logger: logger}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Wrap converts a panic into a call to the error handler. Nothing is written
// when the handler already sent a response header.
func (m *ErrorHandler) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := middleware.NewStatusRecorder(w)
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			err, ok := v.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", v)
			}
			if m.logger != nil {
				m.logger.Error("handler panicked",
					"path", r.URL.Path,
					"error", err,
					"stack", string(debug.Stack()),
				)
			}
			if rec.Written() {
				return
			}
			if m.handler == nil {
				http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			m.handler(rec, r, err)
		}()
		next.ServeHTTP(rec, r)
	})
}
