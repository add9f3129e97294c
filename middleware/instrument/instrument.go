package instrument

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sweetpotato0/kjm-gateway/middleware"
	"github.com/sweetpotato0/kjm-gateway/pkg/metrics"
)

// RouteUnmatched labels requests no route pattern matched.
const RouteUnmatched = "unmatched"

// Instrumenter records request counts and durations per route pattern
type Instrumenter struct {
	metrics *metrics.Metrics
}

// NewInstrumenter creates a metrics middleware. A nil m records nothing.
func NewInstrumenter(m *metrics.Metrics) *Instrumenter {
	return &Instrumenter{metrics: m}
}

// Name returns the middleware name
func (m *Instrumenter) Name() string {
	return "Instrumenter"
}

// Wrap observes the request once the handler returns. The route label is the
// ServeMux pattern, so path values never become label values.
func (m *Instrumenter) Wrap(next http.Handler) http.Handler {
	if m.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = RouteUnmatched
		}
		m.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.Status)).Inc()
		m.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
