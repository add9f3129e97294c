// Package gemini adapts the Google Generative Language API to the dispatcher
// backend interfaces: the genai SDK for text generation and model listing,
// and the REST :predict endpoint for Imagen.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sweetpotato0/kjm-gateway/dispatcher"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Client implements dispatcher.ModelLister and dispatcher.TextBackend on top
// of the genai SDK.
type Client struct {
	client *genai.Client
}

// New creates a Gemini SDK client authenticated with apiKey. Extra options
// are appended after the key.
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	c, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Client{client: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// ListModels returns every model visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]dispatcher.ModelDescriptor, error) {
	var models []dispatcher.ModelDescriptor
	it := c.client.ListModels(ctx)
	for {
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		models = append(models, descriptorFromInfo(info))
	}
	return models, nil
}

// GenerateText sends prompt as a single user turn to model.
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

func descriptorFromInfo(info *genai.ModelInfo) dispatcher.ModelDescriptor {
	if info == nil {
		return dispatcher.ModelDescriptor{}
	}
	methods := make([]string, len(info.SupportedGenerationMethods))
	copy(methods, info.SupportedGenerationMethods)
	return dispatcher.ModelDescriptor{
		Name:             info.Name,
		SupportedMethods: methods,
	}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in candidate (finish reason: %v)", cand.FinishReason)
	}

	var b strings.Builder
	found := false
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
			found = true
		}
	}
	if !found {
		return "", fmt.Errorf("no text part in candidate")
	}
	return b.String(), nil
}
