package dispatcher

import (
	"context"
	"slices"
	"strings"

	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
	"github.com/sweetpotato0/kjm-gateway/pkg/telemetry"
)

const (
	imageMethodMarker = "generateImages"
	imageNameMarker   = "image"
	textSampleLimit   = 5
)

// IsImageCapable reports whether a model advertises image generation or has
// "image" in its name, case-insensitively.
func IsImageCapable(m ModelDescriptor) bool {
	if slices.Contains(m.SupportedMethods, imageMethodMarker) {
		return true
	}
	return strings.Contains(strings.ToLower(m.Name), imageNameMarker)
}

// ClassifyModels splits descriptors into image-capable models and a sample of
// at most five text-capable model names, keeping backend order.
func ClassifyModels(models []ModelDescriptor) (images []ModelDescriptor, textSample []string) {
	images = []ModelDescriptor{}
	textSample = []string{}
	for _, m := range models {
		if IsImageCapable(m) {
			methods := m.SupportedMethods
			if methods == nil {
				methods = []string{}
			}
			images = append(images, ModelDescriptor{Name: m.Name, SupportedMethods: methods})
			continue
		}
		if len(textSample) < textSampleLimit {
			textSample = append(textSample, m.Name)
		}
	}
	return images, textSample
}

// CheckModels lists the backend catalog and classifies it.
func (d *Dispatcher) CheckModels(ctx context.Context) (*Result, error) {
	if !d.hasCredential() || d.backends.Models == nil {
		return nil, gwerrors.ErrMissingCredential
	}

	ctx, span := telemetry.Start(ctx, "models.list", "")
	models, err := d.backends.Models.ListModels(ctx)
	telemetry.End(span, err)
	d.metrics.ObserveBackend("models", err)
	if err != nil {
		d.logger.Error("model listing failed", "error", err)
		return nil, gwerrors.Wrap(gwerrors.KindBackendUnavailable, "model listing failed", err)
	}

	images, sample := ClassifyModels(models)
	d.logger.Info("model catalog listed", "models", len(models), "image_models", len(images))
	return &Result{
		Kind:             KindModelList,
		ImageModels:      images,
		TextModelsSample: sample,
	}, nil
}

// Models is the /check-models operation.
func (d *Dispatcher) Models(ctx context.Context) *Envelope {
	res, err := d.CheckModels(ctx)
	if err != nil {
		return Failure(err)
	}
	return Success(res)
}
