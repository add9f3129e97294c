package dispatcher

import (
	"context"

	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
	"github.com/sweetpotato0/kjm-gateway/pkg/telemetry"
)

// Fixed image generation policy. None of these is taken from caller input.
const (
	ImageSampleCount      = 1
	ImageAspectRatio      = "1:1"
	ImagePersonGeneration = "allow_adult"
)

// GenerateImage requests one image for prompt from the pinned image model.
// The backend's base64 payload is passed through without decoding.
func (d *Dispatcher) GenerateImage(ctx context.Context, prompt string) (*Result, error) {
	if prompt == "" {
		return nil, gwerrors.New(gwerrors.KindMissingPrompt, ParamPrompt)
	}
	if !d.hasCredential() || d.backends.Images == nil {
		return nil, gwerrors.ErrMissingCredential
	}

	req := ImageRequest{
		Model:            ImageModel,
		Prompt:           prompt,
		SampleCount:      ImageSampleCount,
		AspectRatio:      ImageAspectRatio,
		PersonGeneration: ImagePersonGeneration,
	}

	ctx, span := telemetry.Start(ctx, "image.predict", ImageModel)
	data, err := d.backends.Images.PredictImage(ctx, req)
	telemetry.End(span, err)
	d.metrics.ObserveBackend("image", err)
	if err != nil {
		d.logger.Error("image generation failed", "model", ImageModel, "error", err)
		return nil, classifyImageError(err)
	}

	return &Result{Kind: KindImage, Model: ImageModel, Image: data}, nil
}

// Image is the /image operation.
func (d *Dispatcher) Image(ctx context.Context, params Params) *Envelope {
	prompt, err := params.Require(ParamPrompt)
	if err != nil {
		return Failure(err)
	}
	res, err := d.GenerateImage(ctx, prompt)
	if err != nil {
		return Failure(err)
	}
	return Success(res)
}

// classifyImageError keeps the kinds an image backend reports and files
// anything else as a transport failure.
func classifyImageError(err error) error {
	if gwerrors.Is(err, gwerrors.ErrBackendHTTP) ||
		gwerrors.Is(err, gwerrors.ErrNoPrediction) ||
		gwerrors.Is(err, gwerrors.ErrTransport) {
		return err
	}
	return gwerrors.Wrap(gwerrors.KindTransportError, "image prediction failed", err)
}
