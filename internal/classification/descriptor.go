package classification

import (
	"errors"
	"fmt"
	"strings"

	"readscape/internal/library"
)

// Classification failure modes. The handler recovers from all of them by
// degrading to the default descriptor after retries, so none of these abort
// a book's pipeline.
var (
	// ErrEmptyPage means the page text was blank; the model is never called.
	ErrEmptyPage = errors.New("page text is empty")
	// ErrMalformedResponse means no JSON object could be decoded from the
	// model response.
	ErrMalformedResponse = errors.New("malformed classification response")
	// ErrMissingAttribute means the decoded JSON lacked one of the required
	// descriptor keys.
	ErrMissingAttribute = errors.New("classification response missing attribute")
)

// vocabulary enumerates the allowed values per attribute. The prompt renders
// these for the model; parsing does not reject out-of-vocabulary values (the
// model occasionally improvises synonyms and matching tolerates them), it
// only normalizes case and whitespace.
var vocabulary = map[string][]string{
	"mood":              {"joyful", "tense", "melancholic", "peaceful", "mysterious", "romantic", "frightening", "exciting", "somber", "neutral"},
	"setting":           {"forest", "city", "ocean", "mountain", "indoor", "village", "desert", "castle", "battlefield", "road", "unknown"},
	"time_of_day":       {"morning", "afternoon", "evening", "night", "unknown"},
	"weather":           {"clear", "rain", "storm", "snow", "fog", "wind", "unknown"},
	"activity_level":    {"calm", "moderate", "active", "frantic"},
	"atmosphere":        {"cozy", "eerie", "grand", "oppressive", "serene", "chaotic", "neutral"},
	"scene_type":        {"action", "dialogue", "description", "introspection", "transition"},
	"dominant_elements": {"rain", "wind", "fire", "water", "birds", "crowd", "music", "footsteps", "silence", "thunder", "waves", "bells"},
}

// ParseDescriptor decodes and validates a model response into a descriptor.
// The raw payload may wrap the JSON object in prose or code fences.
func ParseDescriptor(decoded map[string]any) (library.Descriptor, error) {
	var descriptor library.Descriptor
	for _, key := range library.AttributeKeys {
		raw, ok := decoded[key]
		if !ok {
			return library.Descriptor{}, fmt.Errorf("%w: %s", ErrMissingAttribute, key)
		}
		value, ok := raw.(string)
		if !ok || strings.TrimSpace(value) == "" {
			return library.Descriptor{}, fmt.Errorf("%w: %s", ErrMissingAttribute, key)
		}
		descriptor.Set(key, normalizeValue(key, value))
	}
	return descriptor, nil
}

func normalizeValue(key, value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if key != "dominant_elements" {
		return value
	}
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return strings.Join(tags, ",")
}
