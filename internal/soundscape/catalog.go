// Package soundscape sources the curated ambient audio catalog: a YAML seed
// file with per-asset curation tags, and an HTTP directory index of the
// external audio storage. Entries land in the library store, which fixes the
// canonical catalog order used by matching.
package soundscape

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is one catalog asset before persistence: a category/folder tag, a
// friendly name, the asset URL, and optional curation tags consumed by
// matching. Intensity is 0-10, or -1 when untagged.
type Entry struct {
	Category  string `yaml:"category"`
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	Mood      string `yaml:"mood"`
	Setting   string `yaml:"setting"`
	Weather   string `yaml:"weather"`
	TimeOfDay string `yaml:"time_of_day"`
	Intensity *int   `yaml:"intensity"`
}

var titleCaser = cases.Title(language.English)

// FriendlyName derives a display name from a raw asset file name: the
// extension is dropped and separators become spaces, title-cased.
func FriendlyName(fileName string) string {
	name := strings.TrimSpace(fileName)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	return titleCaser.String(name)
}

// normalizeTag lowercases and trims a curation tag.
func normalizeTag(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
