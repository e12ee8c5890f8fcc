package classification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/llm"
)

// GeminiClassifier classifies pages through the Google Gemini API directly,
// as an alternative to the OpenRouter-compatible backend.
type GeminiClassifier struct {
	cfg           config.Gemini
	maxInputChars int
}

// NewGeminiClassifier builds the Gemini-backed classifier.
func NewGeminiClassifier(cfg config.Gemini, maxInputChars int) *GeminiClassifier {
	return &GeminiClassifier{cfg: cfg, maxInputChars: maxInputChars}
}

// ClassifyPage sends the page text to Gemini and validates the result.
func (c *GeminiClassifier) ClassifyPage(ctx context.Context, text string) (library.Descriptor, error) {
	if strings.TrimSpace(text) == "" {
		return library.Descriptor{}, ErrEmptyPage
	}

	content, err := c.generate(ctx, SystemPrompt()+"\n\n"+UserPrompt(text, c.maxInputChars))
	if err != nil {
		return library.Descriptor{}, err
	}

	var decoded map[string]any
	if err := llm.DecodeLLMJSON(content, &decoded); err != nil {
		return library.Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return ParseDescriptor(decoded)
}

// HealthCheck verifies the API key allows a trivial generation call.
func (c *GeminiClassifier) HealthCheck(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("gemini health: api key required")
	}
	_, err := c.generate(ctx, `Respond with {"ok":true}`)
	return err
}

func (c *GeminiClassifier) generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("gemini request: api key required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.cfg.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini request: new client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(float32(c.cfg.Temperature))
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini request: no candidates returned")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("gemini request: empty content returned")
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", errors.New("gemini request: unexpected response format")
}
