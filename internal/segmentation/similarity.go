package segmentation

import (
	"strings"

	"readscape/internal/config"
	"readscape/internal/library"
)

// Weights controls how much each descriptor attribute counts toward
// page-to-page continuity. The zero value scores everything 0; use
// WeightsFromConfig for a usable set.
type Weights struct {
	Setting          float64
	TimeOfDay        float64
	SceneType        float64
	DominantElements float64
	Weather          float64
	Atmosphere       float64
	Mood             float64
	ActivityLevel    float64
}

// WeightsFromConfig copies the configured segmentation weights.
func WeightsFromConfig(cfg config.Segmentation) Weights {
	return Weights{
		Setting:          cfg.SettingWeight,
		TimeOfDay:        cfg.TimeOfDayWeight,
		SceneType:        cfg.SceneTypeWeight,
		DominantElements: cfg.DominantElementsWeight,
		Weather:          cfg.WeatherWeight,
		Atmosphere:       cfg.AtmosphereWeight,
		Mood:             cfg.MoodWeight,
		ActivityLevel:    cfg.ActivityLevelWeight,
	}
}

// Similarity computes the weighted similarity of two descriptors in [0, 1].
// Categorical attributes contribute their full weight on a case-insensitive
// exact match; dominant_elements contributes the Jaccard similarity of its
// tag sets. Symmetric by construction.
func Similarity(a, b library.Descriptor, weights Weights) float64 {
	score := 0.0
	score += categoricalMatch(a.Setting, b.Setting) * weights.Setting
	score += categoricalMatch(a.TimeOfDay, b.TimeOfDay) * weights.TimeOfDay
	score += categoricalMatch(a.SceneType, b.SceneType) * weights.SceneType
	score += jaccard(a.Elements(), b.Elements()) * weights.DominantElements
	score += categoricalMatch(a.Weather, b.Weather) * weights.Weather
	score += categoricalMatch(a.Atmosphere, b.Atmosphere) * weights.Atmosphere
	score += categoricalMatch(a.Mood, b.Mood) * weights.Mood
	score += categoricalMatch(a.ActivityLevel, b.ActivityLevel) * weights.ActivityLevel

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func categoricalMatch(a, b string) float64 {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return 1
	}
	return 0
}

// jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets are identical, so their
// similarity is 1.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	union := make(map[string]struct{}, len(a)+len(b))
	setA := make(map[string]struct{}, len(a))
	for _, tag := range a {
		setA[tag] = struct{}{}
		union[tag] = struct{}{}
	}
	intersection := 0
	for _, tag := range b {
		if _, inA := setA[tag]; inA {
			intersection++
		}
		union[tag] = struct{}{}
	}
	if len(union) == 0 {
		return 1
	}
	return float64(intersection) / float64(len(union))
}
