package soundscape

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// seedDocument is the YAML curation file layout: entries grouped by category.
type seedDocument struct {
	Categories []seedCategory `yaml:"categories"`
}

type seedCategory struct {
	Name   string  `yaml:"name"`
	Assets []Entry `yaml:"assets"`
}

// LoadSeedFile parses a YAML curation file into catalog entries in document
// order. Asset-level category values are filled from the enclosing group
// when absent.
func LoadSeedFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]Entry, error) {
	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, errors.New("seed file has no categories")
	}

	var entries []Entry
	for _, category := range doc.Categories {
		categoryName := normalizeTag(category.Name)
		if categoryName == "" {
			return nil, errors.New("seed file category missing name")
		}
		for _, asset := range category.Assets {
			if asset.Category == "" {
				asset.Category = categoryName
			} else {
				asset.Category = normalizeTag(asset.Category)
			}
			if strings.TrimSpace(asset.Name) == "" {
				return nil, fmt.Errorf("category %s: asset missing name", categoryName)
			}
			if strings.TrimSpace(asset.URL) == "" {
				return nil, fmt.Errorf("category %s: asset %s missing url", categoryName, asset.Name)
			}
			asset.Mood = normalizeTag(asset.Mood)
			asset.Setting = normalizeTag(asset.Setting)
			asset.Weather = normalizeTag(asset.Weather)
			asset.TimeOfDay = normalizeTag(asset.TimeOfDay)
			if asset.Intensity != nil && (*asset.Intensity < 0 || *asset.Intensity > 10) {
				return nil, fmt.Errorf("category %s: asset %s intensity must be 0-10", categoryName, asset.Name)
			}
			entries = append(entries, asset)
		}
	}
	return entries, nil
}
