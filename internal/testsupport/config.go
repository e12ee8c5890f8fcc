package testsupport

import (
	"path/filepath"
	"testing"

	"readscape/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithClassifierBackend overrides the classification backend.
func WithClassifierBackend(backend string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Classifier.Backend = backend
	}
}

// WithSimilarityThreshold overrides the scene boundary threshold.
func WithSimilarityThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Segmentation.SimilarityThreshold = threshold
	}
}

// WithConfidenceThreshold overrides the matching review threshold.
func WithConfidenceThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching.ConfidenceThreshold = threshold
	}
}
