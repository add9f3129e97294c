package dispatcher

import (
	"context"

	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
	"github.com/sweetpotato0/kjm-gateway/pkg/telemetry"
)

// GenerateText asks the pinned text model to answer message. The generated
// text is returned verbatim.
func (d *Dispatcher) GenerateText(ctx context.Context, message string) (*Result, error) {
	if message == "" {
		return nil, gwerrors.New(gwerrors.KindMissingPrompt, ParamMessage)
	}
	if !d.hasCredential() || d.backends.Text == nil {
		return nil, gwerrors.ErrMissingCredential
	}

	ctx, span := telemetry.Start(ctx, "text.generate", TextModel)
	text, err := d.backends.Text.GenerateText(ctx, TextModel, message)
	telemetry.End(span, err)
	d.metrics.ObserveBackend("text", err)
	if err != nil {
		d.logger.Error("text generation failed", "model", TextModel, "error", err)
		return nil, gwerrors.Wrap(gwerrors.KindGenerationFailed, "text generation failed", err)
	}

	return &Result{Kind: KindText, Model: TextModel, Text: text}, nil
}

// Chat is the /chat operation: it normalizes the message, generates text and,
// when vocal=oui, attaches synthesized audio on a best-effort basis.
func (d *Dispatcher) Chat(ctx context.Context, params Params) *Envelope {
	message, err := params.Require(ParamMessage)
	if err != nil {
		return Failure(err)
	}

	res, err := d.GenerateText(ctx, message)
	if err != nil {
		return Failure(err)
	}

	if vocal, ok := params.Lookup(ParamVocal); ok && vocal == VocalEnabled {
		outcome := d.Synthesize(ctx, res.Text, d.cfg.SpeechLang)
		if outcome.Err != nil {
			// Audio is optional: the text answer is sent without it.
			d.logger.Warn("speech synthesis failed, answering without audio", "error", outcome.Err)
			d.metrics.ObserveSpeechDegraded()
		} else {
			res.Audio = outcome.Audio
		}
	}

	return Success(res)
}
