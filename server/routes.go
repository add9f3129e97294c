package server

import (
	"encoding/json"
	"net/http"

	"github.com/sweetpotato0/kjm-gateway/config"
	"github.com/sweetpotato0/kjm-gateway/dispatcher"
	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
)

// Banner is the body of GET /.
const Banner = "🔍 Outil de Diagnostic KJM AI"

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleBanner)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /check-models", s.handleCheckModels)
	mux.HandleFunc("GET /chat", s.handleChat)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /image", s.handleImage)
	mux.HandleFunc("POST /image", s.handleImage)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mux
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Banner))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleCheckModels(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, s.dispatcher.Models(r.Context()))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, s.dispatcher.Chat(r.Context(), dispatcher.ParamsFromRequest(r)))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, s.dispatcher.Image(r.Context(), dispatcher.ParamsFromRequest(r)))
}

// recovered answers a panicking request with an internal error envelope. The
// panic value is logged by the error handler, never sent to the caller.
func (s *Server) recovered(w http.ResponseWriter, r *http.Request, err error) {
	s.writeEnvelope(w, dispatcher.Failure(gwerrors.New(gwerrors.KindInternal, "handler panic")))
}

// writeEnvelope writes env as JSON with the status chosen by the policy.
func (s *Server) writeEnvelope(w http.ResponseWriter, env *dispatcher.Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("failed to encode envelope", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","error":"Erreur interne"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(env, s.policy))
	_, _ = w.Write(body)
}

// StatusFor maps an envelope to its HTTP status under policy. Unknown
// policies behave as strict.
func StatusFor(env *dispatcher.Envelope, policy string) int {
	if env == nil {
		return http.StatusInternalServerError
	}
	err := env.Err()
	switch {
	case err == nil:
		return http.StatusOK
	case gwerrors.Is(err, gwerrors.ErrMissingParameter), gwerrors.Is(err, gwerrors.ErrMissingPrompt):
		return http.StatusBadRequest
	case gwerrors.Is(err, gwerrors.ErrBackendUnavailable),
		gwerrors.Is(err, gwerrors.ErrBackendHTTP),
		gwerrors.Is(err, gwerrors.ErrNoPrediction):
		if policy == config.StatusPolicyLegacy {
			return http.StatusOK
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
