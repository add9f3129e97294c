package middleware

import (
	"net/http"
)

// Middleware defines the interface for middleware components
// Middlewares can intercept and modify requests/responses around a gateway route
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Wrap returns a handler running the middleware logic around next.
	// Not calling next stops the chain.
	Wrap(next http.Handler) http.Handler
}

// MiddlewareChain represents a sequence of middleware to be executed
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *MiddlewareChain {
	return &MiddlewareChain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *MiddlewareChain) Add(m Middleware) *MiddlewareChain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Names lists the middlewares in execution order.
func (c *MiddlewareChain) Names() []string {
	names := make([]string, 0, len(c.middlewares))
	for _, m := range c.middlewares {
		names = append(names, m.Name())
	}
	return names
}

// Then wraps final so that the first middleware added runs first.
func (c *MiddlewareChain) Then(final http.Handler) http.Handler {
	if final == nil {
		final = http.NotFoundHandler()
	}
	return c.wrap(0, final)
}

// wrap recursively nests middlewares in sequence
func (c *MiddlewareChain) wrap(index int, final http.Handler) http.Handler {
	if index >= len(c.middlewares) {
		return final
	}
	return c.middlewares[index].Wrap(c.wrap(index+1, final))
}

// Func adapts a plain wrapping function to the Middleware interface.
type Func struct {
	name string
	wrap func(http.Handler) http.Handler
}

// NewFunc creates a named middleware from fn.
func NewFunc(name string, fn func(http.Handler) http.Handler) *Func {
	return &Func{name: name, wrap: fn}
}

// Name returns the middleware name
func (m *Func) Name() string {
	return m.name
}

// Wrap applies the wrapped function, or returns next unchanged when it is nil.
func (m *Func) Wrap(next http.Handler) http.Handler {
	if m.wrap == nil {
		return next
	}
	return m.wrap(next)
}

// StatusRecorder captures the status code and body size written by a handler.
type StatusRecorder struct {
	http.ResponseWriter

	Status      int
	Bytes       int
	wroteHeader bool
}

// NewStatusRecorder wraps w. The status defaults to 200 until a handler
// writes a header.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	if rec, ok := w.(*StatusRecorder); ok {
		return rec
	}
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader records code before forwarding it.
func (r *StatusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Write forwards b, sending an implicit 200 header first.
func (r *StatusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.Bytes += n
	return n, err
}

// Written reports whether a header has been sent.
func (r *StatusRecorder) Written() bool {
	return r.wroteHeader
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
