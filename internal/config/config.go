package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// LLM contains connection settings for the chat-completion classification endpoint.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains settings for the alternate Gemini classification backend.
type Gemini struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
}

// Classifier contains page classification behaviour.
type Classifier struct {
	// Backend selects the classification provider: "llm" or "gemini".
	Backend string `toml:"backend"`
	// MaxInputChars caps how much page text is sent to the model; longer
	// text is truncated, not rejected.
	MaxInputChars int `toml:"max_input_chars"`
	// RetryMaxAttempts bounds retries for transient endpoint failures.
	RetryMaxAttempts int `toml:"retry_max_attempts"`
	// RetryBaseDelaySeconds is the first backoff delay; it doubles per attempt.
	RetryBaseDelaySeconds int `toml:"retry_base_delay_seconds"`
	RetryMaxDelaySeconds  int `toml:"retry_max_delay_seconds"`
	// PageWorkers bounds concurrent page classifications within one book.
	PageWorkers int `toml:"page_workers"`
}

// Segmentation contains the scene boundary tuning knobs. The weights must sum
// to 1.0; they control how much each descriptor attribute counts toward
// page-to-page continuity.
type Segmentation struct {
	SimilarityThreshold    float64 `toml:"similarity_threshold"`
	SettingWeight          float64 `toml:"setting_weight"`
	TimeOfDayWeight        float64 `toml:"time_of_day_weight"`
	SceneTypeWeight        float64 `toml:"scene_type_weight"`
	DominantElementsWeight float64 `toml:"dominant_elements_weight"`
	WeatherWeight          float64 `toml:"weather_weight"`
	AtmosphereWeight       float64 `toml:"atmosphere_weight"`
	MoodWeight             float64 `toml:"mood_weight"`
	ActivityLevelWeight    float64 `toml:"activity_level_weight"`
}

// Matching contains the soundscape scoring knobs. This weight set answers a
// different question than segmentation (audio fit, not continuity) and is
// deliberately independent of it.
type Matching struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	MoodWeight          float64 `toml:"mood_weight"`
	SettingWeight       float64 `toml:"setting_weight"`
	IntensityWeight     float64 `toml:"intensity_weight"`
	WeatherWeight       float64 `toml:"weather_weight"`
	TimeOfDayWeight     float64 `toml:"time_of_day_weight"`
}

// Catalog contains soundscape catalog sourcing configuration.
type Catalog struct {
	// SeedPath points at a YAML curation file of tagged assets.
	SeedPath string `toml:"seed_path"`
	// IndexURL is the HTTP directory index of the external audio storage.
	IndexURL       string `toml:"index_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Workflow contains daemon timing, concurrency, and heartbeat settings.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	// ClassifyWorkers is the worker count for the LLM-bound classification lane.
	ClassifyWorkers int `toml:"classify_workers"`
	// LightWorkers is the worker count for the CPU-light segmentation/matching lane.
	LightWorkers int `toml:"light_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for readscape.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - LLM: chat-completion endpoint for page classification
//   - Gemini: alternate classification backend
//   - Classifier: truncation, retry, and per-book concurrency
//   - Segmentation: scene boundary weights and threshold
//   - Matching: soundscape scoring weights and confidence threshold
//   - Catalog: curated soundscape sourcing
//   - Workflow: daemon polling, heartbeats, lane worker counts
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	LLM          LLM          `toml:"llm"`
	Gemini       Gemini       `toml:"gemini"`
	Classifier   Classifier   `toml:"classifier"`
	Segmentation Segmentation `toml:"segmentation"`
	Matching     Matching     `toml:"matching"`
	Catalog      Catalog      `toml:"catalog"`
	Workflow     Workflow     `toml:"workflow"`
	Logging      Logging      `toml:"logging"`
}

// LogDir returns the configured log directory.
func (c *Config) LogDir() string { return c.Paths.LogDir }

// DataDir returns the configured data directory.
func (c *Config) DataDir() string { return c.Paths.DataDir }

// DatabasePath returns the location of the library database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "library.db")
}

// EnsureDirectories creates the configured directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string { return sampleConfig }

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/readscape/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Catalog.SeedPath != "" {
		if c.Catalog.SeedPath, err = expandPath(c.Catalog.SeedPath); err != nil {
			return err
		}
	}
	c.Classifier.Backend = strings.ToLower(strings.TrimSpace(c.Classifier.Backend))
	if c.Classifier.Backend == "" {
		c.Classifier.Backend = "llm"
	}
	// Environment overrides keep API keys out of the config file.
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		c.LLM.APIKey = os.Getenv("READSCAPE_LLM_API_KEY")
	}
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
