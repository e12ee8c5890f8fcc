package segmentation

import "readscape/internal/library"

// BuildScenes groups boundary-delimited page ranges into scene records with
// aggregated descriptors. Boundaries must be the output of Boundaries for the
// same page sequence; the resulting scenes are contiguous and cover every
// page exactly once.
func BuildScenes(pages []PageDescriptor, boundaries []int) []library.Scene {
	if len(pages) == 0 || len(boundaries) == 0 {
		return nil
	}

	lastPage := pages[len(pages)-1].PageNumber
	scenes := make([]library.Scene, 0, len(boundaries))
	for i, start := range boundaries {
		end := lastPage
		if i+1 < len(boundaries) {
			end = boundaries[i+1] - 1
		}

		var rangePages []PageDescriptor
		for _, page := range pages {
			if page.PageNumber >= start && page.PageNumber <= end {
				rangePages = append(rangePages, page)
			}
		}

		scenes = append(scenes, library.Scene{
			StartPage:  start,
			EndPage:    end,
			Descriptor: AggregateDescriptors(rangePages),
		})
	}
	return scenes
}

// AggregateDescriptors selects, independently per attribute key, the most
// frequent value among the range's pages. Ties break to the value first seen
// at the earliest page, which keeps aggregation deterministic. An empty range
// falls back to the default descriptor.
func AggregateDescriptors(pages []PageDescriptor) library.Descriptor {
	if len(pages) == 0 {
		return library.DefaultDescriptor()
	}

	var aggregated library.Descriptor
	for _, key := range library.AttributeKeys {
		counts := make(map[string]int, len(pages))
		for _, page := range pages {
			counts[page.Descriptor.Get(key)]++
		}

		// Scanning values in page order means a later value only wins with a
		// strictly higher count, so ties go to the earliest page.
		best := ""
		bestCount := -1
		for _, page := range pages {
			value := page.Descriptor.Get(key)
			if counts[value] > bestCount {
				best = value
				bestCount = counts[value]
			}
		}
		aggregated.Set(key, best)
	}
	return aggregated
}
