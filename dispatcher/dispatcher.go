// Package dispatcher routes normalized gateway requests to the generative
// backend capabilities (model catalog, text, image), chains optional speech
// synthesis onto text results and wraps every outcome in an Envelope.
package dispatcher

import (
	"context"
	"log/slog"

	"github.com/sweetpotato0/kjm-gateway/pkg/logging"
	"github.com/sweetpotato0/kjm-gateway/pkg/metrics"
)

// Pinned backend models. Callers cannot select another model.
const (
	TextModel  = "gemini-2.0-flash"
	ImageModel = "imagen-4.0-generate-001"
)

// Request parameter names.
const (
	ParamMessage = "message"
	ParamPrompt  = "prompt"
	ParamVocal   = "vocal"
)

// ModelDescriptor is one entry of the backend model catalog.
type ModelDescriptor struct {
	Name             string   `json:"name"`
	SupportedMethods []string `json:"methods"`
}

// ImageRequest is the single prediction sent to the image backend.
type ImageRequest struct {
	Model            string
	Prompt           string
	SampleCount      int
	AspectRatio      string
	PersonGeneration string
}

// ModelLister lists the models visible to the configured credential.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelDescriptor, error)
}

// TextBackend generates text for a prompt with the given model.
type TextBackend interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// ImageBackend runs an image prediction and returns the first prediction's
// base64 payload as sent by the backend. Failures are *errors.Error values of
// kind BackendHTTPError, NoPredictionReturned or TransportError.
type ImageBackend interface {
	PredictImage(ctx context.Context, req ImageRequest) (string, error)
}

// SpeechBackend converts text to encoded audio bytes.
type SpeechBackend interface {
	Synthesize(ctx context.Context, text, lang string, slow bool) ([]byte, error)
}

// Backends groups the capability clients. Any of them may be nil when the
// gateway runs without a credential or with speech disabled.
type Backends struct {
	Models ModelLister
	Text   TextBackend
	Images ImageBackend
	Speech SpeechBackend
}

// Config is the read-only configuration of a Dispatcher.
type Config struct {
	// APIKey is the backend credential. Empty means every backend operation
	// fails with MissingCredential before any network call.
	APIKey string
	// SpeechLang is the language used for speech synthesis, "fr" when empty.
	SpeechLang string
}

// Dispatcher is safe for concurrent use; it holds no per-request state.
type Dispatcher struct {
	cfg      Config
	backends Backends
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records backend calls on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher.
func New(cfg Config, backends Backends, opts ...Option) *Dispatcher {
	if cfg.SpeechLang == "" {
		cfg.SpeechLang = DefaultSpeechLang
	}
	d := &Dispatcher{
		cfg:      cfg,
		backends: backends,
		logger:   logging.WithComponent("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) hasCredential() bool {
	return d.cfg.APIKey != ""
}
