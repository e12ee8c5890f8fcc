package classification

import (
	"context"
	"fmt"
	"strings"

	"readscape/internal/library"
	"readscape/internal/llm"
)

// Classifier produces a descriptor for one page of text.
type Classifier interface {
	ClassifyPage(ctx context.Context, text string) (library.Descriptor, error)
	HealthCheck(ctx context.Context) error
}

// completer is the subset of the llm client the classifier needs.
type completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// LLMClassifier classifies pages through an OpenRouter-compatible chat API.
type LLMClassifier struct {
	client        completer
	maxInputChars int
}

// NewLLMClassifier builds a classifier on top of an llm client.
func NewLLMClassifier(client *llm.Client, maxInputChars int) *LLMClassifier {
	return &LLMClassifier{client: client, maxInputChars: maxInputChars}
}

// ClassifyPage sends the page text to the model and validates the result.
// Blank text fails fast with ErrEmptyPage before any network call.
func (c *LLMClassifier) ClassifyPage(ctx context.Context, text string) (library.Descriptor, error) {
	if strings.TrimSpace(text) == "" {
		return library.Descriptor{}, ErrEmptyPage
	}

	content, err := c.client.CompleteJSON(ctx, SystemPrompt(), UserPrompt(text, c.maxInputChars))
	if err != nil {
		return library.Descriptor{}, err
	}

	var decoded map[string]any
	if err := llm.DecodeLLMJSON(content, &decoded); err != nil {
		return library.Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return ParseDescriptor(decoded)
}

// HealthCheck verifies the backing API is reachable and usable.
func (c *LLMClassifier) HealthCheck(ctx context.Context) error {
	return c.client.HealthCheck(ctx)
}
