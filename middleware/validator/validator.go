package validator

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds request bodies read by the gateway routes.
const DefaultMaxBodyBytes int64 = 1 << 20

// BodyLimiter caps the request body size. Reads past the limit fail, which
// the parameter normalizer treats as an absent body.
type BodyLimiter struct {
	maxBytes int64
}

// NewBodyLimiter creates a body size limiting middleware
func NewBodyLimiter(maxBytes int64) *BodyLimiter {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return &BodyLimiter{maxBytes: maxBytes}
}

// Name returns the middleware name
func (m *BodyLimiter) Name() string {
	return "BodyLimiter"
}

// Wrap limits the body of the request
func (m *BodyLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, m.maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}
