package dispatcher

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
	"github.com/sweetpotato0/kjm-gateway/pkg/logging"
)

func TestCleanSpeechText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "**gras** et *italique*", want: "gras et italique"},
		{in: "liste:\n* un\n* deux", want: "liste:\n un\n deux"},
		{in: "a ***** b", want: "a  b"},
		{in: "_souligné_", want: "_souligné_"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanSpeechText(tt.in))
		})
	}
}

func TestSynthesizeDefaultsToFrench(t *testing.T) {
	f := newFixture()
	out := f.dispatcher(testAPIKey).Synthesize(context.Background(), "Salut", "")

	require.NoError(t, out.Err)
	assert.Equal(t, "fr", out.Audio.Lang)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("ID3-mp3-bytes")), out.Audio.Encoded)
	assert.Equal(t, []string{"fr"}, f.speech.langs)
}

func TestSynthesizeConfiguredLanguage(t *testing.T) {
	f := newFixture()
	d := New(Config{APIKey: testAPIKey, SpeechLang: "en"}, Backends{Speech: f.speech}, WithLogger(logging.Discard()))

	out := d.Synthesize(context.Background(), "Hello", d.cfg.SpeechLang)
	require.NoError(t, out.Err)
	assert.Equal(t, "en", out.Audio.Lang)
}

func TestSynthesizeFailures(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		d := New(Config{APIKey: testAPIKey}, Backends{}, WithLogger(logging.Discard()))
		out := d.Synthesize(context.Background(), "Salut", "fr")
		assert.Nil(t, out.Audio)
		assert.Equal(t, gwerrors.KindSynthesisFailure, gwerrors.KindOf(out.Err))
	})

	t.Run("only markers", func(t *testing.T) {
		f := newFixture()
		out := f.dispatcher(testAPIKey).Synthesize(context.Background(), "***", "fr")
		assert.Error(t, out.Err)
		assert.Zero(t, f.speech.calls)
	})

	t.Run("empty audio", func(t *testing.T) {
		f := newFixture()
		f.speech.audio = nil
		out := f.dispatcher(testAPIKey).Synthesize(context.Background(), "Salut", "fr")
		assert.Nil(t, out.Audio)
		assert.Equal(t, gwerrors.KindSynthesisFailure, gwerrors.KindOf(out.Err))
	})
}
