package dispatcher

import (
	"context"
	"encoding/base64"
	"regexp"

	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
	"github.com/sweetpotato0/kjm-gateway/pkg/telemetry"
)

const (
	// DefaultSpeechLang is used when no language is configured.
	DefaultSpeechLang = "fr"
	// VocalEnabled is the only vocal parameter value that requests audio.
	VocalEnabled = "oui"
	// AudioFormat is the encoding produced by the speech backend.
	AudioFormat = "mp3"
)

var emphasisMarkers = regexp.MustCompile(`\*+`)

// AudioPayload is synthesized speech for a text result.
type AudioPayload struct {
	Encoded string
	Lang    string
}

// Info describes the payload for callers.
func (a *AudioPayload) Info() string {
	return AudioFormat + " base64, langue: " + a.Lang
}

// SpeechOutcome is the result of the best-effort synthesis step. Exactly one
// of Audio and Err is set; the caller decides what to do with Err.
type SpeechOutcome struct {
	Audio *AudioPayload
	Err   error
}

// CleanSpeechText removes markdown emphasis markers (runs of '*').
func CleanSpeechText(text string) string {
	return emphasisMarkers.ReplaceAllString(text, "")
}

// Synthesize converts text to base64 encoded speech in lang at normal speed.
func (d *Dispatcher) Synthesize(ctx context.Context, text, lang string) SpeechOutcome {
	if lang == "" {
		lang = DefaultSpeechLang
	}
	if d.backends.Speech == nil {
		return SpeechOutcome{Err: gwerrors.New(gwerrors.KindSynthesisFailure, "speech synthesis disabled")}
	}

	cleaned := CleanSpeechText(text)
	if cleaned == "" {
		return SpeechOutcome{Err: gwerrors.New(gwerrors.KindSynthesisFailure, "nothing to synthesize")}
	}

	ctx, span := telemetry.Start(ctx, "speech.synthesize", "")
	audio, err := d.backends.Speech.Synthesize(ctx, cleaned, lang, false)
	if err == nil && len(audio) == 0 {
		err = gwerrors.New(gwerrors.KindSynthesisFailure, "empty audio")
	}
	telemetry.End(span, err)
	d.metrics.ObserveBackend("speech", err)
	if err != nil {
		return SpeechOutcome{Err: gwerrors.Wrap(gwerrors.KindSynthesisFailure, "speech synthesis failed", err)}
	}

	return SpeechOutcome{Audio: &AudioPayload{
		Encoded: base64.StdEncoding.EncodeToString(audio),
		Lang:    lang,
	}}
}
