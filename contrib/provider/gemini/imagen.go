package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sweetpotato0/kjm-gateway/dispatcher"
	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the Generative Language REST root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultMaxResponseBytes bounds a :predict response. One base64 PNG
	// sample is a few MiB.
	DefaultMaxResponseBytes int64 = 32 << 20
)

// ImagenConfig holds Imagen REST client configuration
type ImagenConfig struct {
	APIKey           string
	BaseURL          string
	MaxResponseBytes int64
}

// Imagen implements dispatcher.ImageBackend with the models/{model}:predict
// REST endpoint, which the genai SDK does not expose.
type Imagen struct {
	config *ImagenConfig
	client *http.Client
}

// NewImagen creates an Imagen client. A nil httpClient uses a client without
// timeout; the request context bounds the call.
func NewImagen(config *ImagenConfig, httpClient *http.Client) *Imagen {
	if config == nil {
		config = &ImagenConfig{}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Imagen{config: config, client: httpClient}
}

// predictRequest represents an Imagen :predict request
type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount      int    `json:"sampleCount"`
	AspectRatio      string `json:"aspectRatio"`
	PersonGeneration string `json:"personGeneration"`
}

// PredictImage implements dispatcher.ImageBackend.
func (p *Imagen) PredictImage(ctx context.Context, req dispatcher.ImageRequest) (string, error) {
	payload := predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: predictParameters{
			SampleCount:      req.SampleCount,
			AspectRatio:      req.AspectRatio,
			PersonGeneration: req.PersonGeneration,
		},
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predict", strings.TrimRight(p.config.BaseURL, "/"), req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.config.APIKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return "", gwerrors.Wrap(gwerrors.KindTransportError, "failed to send request", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, p.config.MaxResponseBytes+1))
	if err != nil {
		return "", gwerrors.Wrap(gwerrors.KindTransportError, "failed to read response", err)
	}
	if int64(len(respBody)) > p.config.MaxResponseBytes {
		return "", &gwerrors.Error{
			Kind:    gwerrors.KindTransportError,
			Message: fmt.Sprintf("prediction response exceeds %d bytes", p.config.MaxResponseBytes),
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return "", gwerrors.HTTPStatus(httpResp.StatusCode, string(respBody))
	}

	if !gjson.ValidBytes(respBody) {
		return "", &gwerrors.Error{
			Kind:    gwerrors.KindTransportError,
			Message: "unparseable prediction response",
			Details: string(respBody),
		}
	}

	data := gjson.GetBytes(respBody, "predictions.0.bytesBase64Encoded")
	if data.Type != gjson.String || data.Str == "" {
		return "", &gwerrors.Error{
			Kind:    gwerrors.KindNoPredictionReturned,
			Message: "no image in prediction response",
			Details: string(respBody),
		}
	}
	return data.Str, nil
}
