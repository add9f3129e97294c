package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetpotato0/kjm-gateway/config"
	"github.com/sweetpotato0/kjm-gateway/dispatcher"
	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
	"github.com/sweetpotato0/kjm-gateway/middleware/enricher"
	"github.com/sweetpotato0/kjm-gateway/pkg/logging"
	"github.com/sweetpotato0/kjm-gateway/pkg/metrics"
)

type stubModels struct{}

func (stubModels) ListModels(ctx context.Context) ([]dispatcher.ModelDescriptor, error) {
	return []dispatcher.ModelDescriptor{
		{Name: "models/gemini-2.0-flash", SupportedMethods: []string{"generateContent"}},
		{Name: "models/imagen-4.0-generate-001", SupportedMethods: []string{"predict"}},
	}, nil
}

type stubText struct {
	panics bool
}

func (s stubText) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	if s.panics {
		panic("nil pointer in backend")
	}
	return "Salut!", nil
}

// countingText records how many prompts reached the backend.
type countingText struct {
	calls int
}

func (c *countingText) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	c.calls++
	return "Salut!", nil
}

type stubImages struct {
	err error
}

func (s stubImages) PredictImage(ctx context.Context, req dispatcher.ImageRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "QUJD", nil
}

type stubSpeech struct{}

func (stubSpeech) Synthesize(ctx context.Context, text, lang string, slow bool) ([]byte, error) {
	return []byte("mp3"), nil
}

type testEnv struct {
	handler http.Handler
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, apiKey, policy string, backends dispatcher.Backends) *testEnv {
	t.Helper()
	m := metrics.New()
	d := dispatcher.New(
		dispatcher.Config{APIKey: apiKey},
		backends,
		dispatcher.WithMetrics(m),
		dispatcher.WithLogger(logging.Discard()),
	)
	s := New(
		config.ServerConfig{Host: "127.0.0.1", Port: 0, StatusPolicy: policy},
		d,
		WithMetrics(m),
		WithLogger(logging.Discard()),
	)
	return &testEnv{handler: s.Handler(), metrics: m}
}

func defaultBackends() dispatcher.Backends {
	return dispatcher.Backends{
		Models: stubModels{},
		Text:   stubText{},
		Images: stubImages{},
		Speech: stubSpeech{},
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestBannerAndHealth(t *testing.T) {
	env := newTestEnv(t, "key", config.StatusPolicyStrict, defaultBackends())

	rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Banner, rec.Body.String())

	rec, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatQueryAndBody(t *testing.T) {
	env := newTestEnv(t, "key", config.StatusPolicyStrict, defaultBackends())

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/chat?message=Bonjour", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"status":     "success",
		"type":       "text",
		"model_used": "gemini-2.0-flash",
		"reponse":    "Salut!",
	}, body)
	assert.NotEmpty(t, rec.Header().Get(enricher.HeaderRequestID))

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"Bonjour","vocal":"oui"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body = env.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bXAz", body["audio_base64"])
	assert.Equal(t, "mp3 base64, langue: fr", body["audio_info"])

	req = httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("message=Bonjour"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, body = env.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Salut!", body["reponse"])
}

func TestChatMissingMessage(t *testing.T) {
	env := newTestEnv(t, "key", config.StatusPolicyStrict, defaultBackends())

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Message manquant", body["error"])
}

func TestChatOversizedBodyIsRejected(t *testing.T) {
	filler := strings.Repeat("a", 2<<20)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "form", contentType: "application/x-www-form-urlencoded", body: "message=" + filler},
		{name: "json", contentType: "application/json", body: `{"message":"` + filler + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := &countingText{}
			backends := defaultBackends()
			backends.Text = text
			env := newTestEnv(t, "key", config.StatusPolicyStrict, backends)

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec, body := env.do(t, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Message manquant", body["error"])
			assert.Zero(t, text.calls)
		})
	}
}

func TestMissingCredential(t *testing.T) {
	env := newTestEnv(t, "", config.StatusPolicyStrict, dispatcher.Backends{})

	for _, target := range []string{"/check-models", "/chat?message=Bonjour", "/image?prompt=chat"} {
		t.Run(target, func(t *testing.T) {
			rec, body := env.do(t, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "Clé API manquante", body["error"])
		})
	}
}

func TestCheckModels(t *testing.T) {
	env := newTestEnv(t, "key", config.StatusPolicyStrict, defaultBackends())

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/check-models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "model_list", body["type"])
	assert.Equal(t, []any{
		map[string]any{"name": "models/imagen-4.0-generate-001", "methods": []any{"predict"}},
	}, body["AVAILABLE_IMAGE_MODELS"])
	assert.Equal(t, []any{"models/gemini-2.0-flash"}, body["available_text_models_sample"])
}

func TestImage(t *testing.T) {
	env := newTestEnv(t, "key", config.StatusPolicyStrict, defaultBackends())

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/image?prompt=un+chat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"status":     "success",
		"model_used": "imagen-4.0-generate-001",
		"type":       "image_base64",
		"data":       "QUJD",
	}, body)

	rec, body = env.do(t, httptest.NewRequest(http.MethodGet, "/image?prompt=", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Prompt manquant", body["error"])
}

func TestStatusPolicy(t *testing.T) {
	backendErr := gwerrors.HTTPStatus(http.StatusForbidden, `{"error":{"code":403}}`)

	tests := []struct {
		policy string
		want   int
	}{
		{policy: config.StatusPolicyStrict, want: http.StatusBadGateway},
		{policy: config.StatusPolicyLegacy, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			backends := defaultBackends()
			backends.Images = stubImages{err: backendErr}
			env := newTestEnv(t, "key", tt.policy, backends)

			rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/image?prompt=chat", nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, "Erreur API Google", body["error"])
			assert.Equal(t, `{"error":{"code":403}}`, body["details"])
			assert.Equal(t, float64(http.StatusForbidden), body["backend_status"])
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind   gwerrors.Kind
		strict int
		legacy int
	}{
		{gwerrors.KindMissingParameter, 400, 400},
		{gwerrors.KindMissingPrompt, 400, 400},
		{gwerrors.KindMissingCredential, 500, 500},
		{gwerrors.KindGenerationFailed, 500, 500},
		{gwerrors.KindTransportError, 500, 500},
		{gwerrors.KindInternal, 500, 500},
		{gwerrors.KindBackendUnavailable, 502, 200},
		{gwerrors.KindBackendHTTPError, 502, 200},
		{gwerrors.KindNoPredictionReturned, 502, 200},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			env := dispatcher.Failure(gwerrors.New(tt.kind, "x"))
			assert.Equal(t, tt.strict, StatusFor(env, config.StatusPolicyStrict))
			assert.Equal(t, tt.legacy, StatusFor(env, config.StatusPolicyLegacy))
		})
	}

	assert.Equal(t, http.StatusOK, StatusFor(dispatcher.Success(&dispatcher.Result{Kind: dispatcher.KindText}), config.StatusPolicyStrict))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(nil, config.StatusPolicyStrict))
}

func TestPanicBecomesInternalEnvelope(t *testing.T) {
	backends := defaultBackends()
	backends.Text = stubText{panics: true}
	env := newTestEnv(t, "key", config.StatusPolicyStrict, backends)

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/chat?message=Bonjour", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"status": "error", "error": "Erreur interne"}, body)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, "key", config.StatusPolicyStrict, defaultBackends())

	rec, _ := env.do(t, httptest.NewRequest(http.MethodDelete, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "key", config.StatusPolicyStrict, defaultBackends())

	env.do(t, httptest.NewRequest(http.MethodGet, "/chat?message=Bonjour", nil))
	rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `gateway_http_requests_total{code="200",route="GET /chat"} 1`)
	assert.Contains(t, out, `gateway_backend_calls_total{capability="text",outcome="success"} 1`)
}

func TestServeAndStop(t *testing.T) {
	m := metrics.New()
	d := dispatcher.New(dispatcher.Config{APIKey: "key"}, defaultBackends(), dispatcher.WithLogger(logging.Discard()))
	s := New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, d, WithMetrics(m), WithLogger(logging.Discard()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(b))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, <-done)
}
