package matching

import (
	"math"
	"strings"

	"readscape/internal/config"
	"readscape/internal/library"
)

// Weights controls how much each attribute counts toward audio fit. This set
// is independent of the segmentation weights; continuity and fit answer
// different questions.
type Weights struct {
	Mood      float64
	Setting   float64
	Intensity float64
	Weather   float64
	TimeOfDay float64
}

// WeightsFromConfig copies the configured matching weights.
func WeightsFromConfig(cfg config.Matching) Weights {
	return Weights{
		Mood:      cfg.MoodWeight,
		Setting:   cfg.SettingWeight,
		Intensity: cfg.IntensityWeight,
		Weather:   cfg.WeatherWeight,
		TimeOfDay: cfg.TimeOfDayWeight,
	}
}

// activityIntensity maps a scene's activity level onto the 0-10 intensity
// scale used by catalog curation tags.
var activityIntensity = map[string]int{
	"calm":     2,
	"moderate": 5,
	"active":   8,
	"frantic":  10,
}

// SceneIntensity derives a numeric intensity from a scene descriptor.
func SceneIntensity(descriptor library.Descriptor) (int, bool) {
	value, ok := activityIntensity[strings.ToLower(strings.TrimSpace(descriptor.ActivityLevel))]
	return value, ok
}

// Score computes the weighted fit of a soundscape for a scene descriptor in
// [0, 1]. Categorical attributes score 1.0 on a case-insensitive exact match
// and 0.0 otherwise. Intensity compares numerically when both sides carry a
// 0-10 value; otherwise the intensity term contributes nothing.
func Score(descriptor library.Descriptor, entry *library.Soundscape, weights Weights) float64 {
	score := 0.0
	score += categoricalMatch(descriptor.Mood, entry.Mood) * weights.Mood
	score += categoricalMatch(descriptor.Setting, entry.Setting) * weights.Setting
	score += categoricalMatch(descriptor.Weather, entry.Weather) * weights.Weather
	score += categoricalMatch(descriptor.TimeOfDay, entry.TimeOfDay) * weights.TimeOfDay

	if sceneIntensity, ok := SceneIntensity(descriptor); ok && entry.Intensity >= 0 && entry.Intensity <= 10 {
		score += (1.0 - math.Abs(float64(sceneIntensity-entry.Intensity))/10.0) * weights.Intensity
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func categoricalMatch(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(a, b) {
		return 1
	}
	return 0
}
