package dispatcher

import (
	"context"
	"sync"

	"github.com/sweetpotato0/kjm-gateway/pkg/logging"
)

const testAPIKey = "test-key"

type fakeModels struct {
	mu     sync.Mutex
	calls  int
	models []ModelDescriptor
	err    error
}

func (f *fakeModels) ListModels(ctx context.Context) ([]ModelDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.models, f.err
}

type fakeText struct {
	mu      sync.Mutex
	calls   int
	models  []string
	prompts []string
	reply   string
	err     error
}

func (f *fakeText) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeImages struct {
	mu       sync.Mutex
	calls    int
	requests []ImageRequest
	data     string
	err      error
}

func (f *fakeImages) PredictImage(ctx context.Context, req ImageRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	return f.data, f.err
}

type fakeSpeech struct {
	mu    sync.Mutex
	calls int
	texts []string
	langs []string
	slow  []bool
	audio []byte
	err   error
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, lang string, slow bool) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, text)
	f.langs = append(f.langs, lang)
	f.slow = append(f.slow, slow)
	return f.audio, f.err
}

type fixture struct {
	models *fakeModels
	text   *fakeText
	images *fakeImages
	speech *fakeSpeech
}

func (f *fixture) backendCalls() int {
	return f.models.calls + f.text.calls + f.images.calls + f.speech.calls
}

func newFixture() *fixture {
	return &fixture{
		models: &fakeModels{},
		text:   &fakeText{reply: "Salut!"},
		images: &fakeImages{data: "QUJD"},
		speech: &fakeSpeech{audio: []byte("ID3-mp3-bytes")},
	}
}

func (f *fixture) dispatcher(apiKey string) *Dispatcher {
	return New(Config{APIKey: apiKey}, Backends{
		Models: f.models,
		Text:   f.text,
		Images: f.images,
		Speech: f.speech,
	}, WithLogger(logging.Discard()))
}
