package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const weightSumTolerance = 1e-6

// Validate checks the configuration for values that would break the pipeline.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must be set")
	}

	switch c.Classifier.Backend {
	case "llm", "gemini":
	default:
		problems = append(problems, fmt.Sprintf("classifier.backend must be \"llm\" or \"gemini\", got %q", c.Classifier.Backend))
	}
	if c.Classifier.MaxInputChars <= 0 {
		problems = append(problems, "classifier.max_input_chars must be positive")
	}
	if c.Classifier.RetryMaxAttempts <= 0 {
		problems = append(problems, "classifier.retry_max_attempts must be positive")
	}
	if c.Classifier.PageWorkers <= 0 {
		problems = append(problems, "classifier.page_workers must be positive")
	}

	if c.Segmentation.SimilarityThreshold < 0 || c.Segmentation.SimilarityThreshold > 1 {
		problems = append(problems, "segmentation.similarity_threshold must be within [0, 1]")
	}
	if sum := c.segmentationWeightSum(); math.Abs(sum-1.0) > weightSumTolerance {
		problems = append(problems, fmt.Sprintf("segmentation weights must sum to 1.0, got %.4f", sum))
	}
	if c.anySegmentationWeightNegative() {
		problems = append(problems, "segmentation weights must not be negative")
	}

	if c.Matching.ConfidenceThreshold < 0 || c.Matching.ConfidenceThreshold > 1 {
		problems = append(problems, "matching.confidence_threshold must be within [0, 1]")
	}
	if sum := c.matchingWeightSum(); math.Abs(sum-1.0) > weightSumTolerance {
		problems = append(problems, fmt.Sprintf("matching weights must sum to 1.0, got %.4f", sum))
	}
	if c.anyMatchingWeightNegative() {
		problems = append(problems, "matching weights must not be negative")
	}

	if c.Workflow.ClassifyWorkers <= 0 {
		problems = append(problems, "workflow.classify_workers must be positive")
	}
	if c.Workflow.LightWorkers <= 0 {
		problems = append(problems, "workflow.light_workers must be positive")
	}
	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 || c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) segmentationWeightSum() float64 {
	s := c.Segmentation
	return s.SettingWeight + s.TimeOfDayWeight + s.SceneTypeWeight + s.DominantElementsWeight +
		s.WeatherWeight + s.AtmosphereWeight + s.MoodWeight + s.ActivityLevelWeight
}

func (c *Config) anySegmentationWeightNegative() bool {
	s := c.Segmentation
	for _, w := range []float64{s.SettingWeight, s.TimeOfDayWeight, s.SceneTypeWeight, s.DominantElementsWeight, s.WeatherWeight, s.AtmosphereWeight, s.MoodWeight, s.ActivityLevelWeight} {
		if w < 0 {
			return true
		}
	}
	return false
}

func (c *Config) matchingWeightSum() float64 {
	m := c.Matching
	return m.MoodWeight + m.SettingWeight + m.IntensityWeight + m.WeatherWeight + m.TimeOfDayWeight
}

func (c *Config) anyMatchingWeightNegative() bool {
	m := c.Matching
	for _, w := range []float64{m.MoodWeight, m.SettingWeight, m.IntensityWeight, m.WeatherWeight, m.TimeOfDayWeight} {
		if w < 0 {
			return true
		}
	}
	return false
}
