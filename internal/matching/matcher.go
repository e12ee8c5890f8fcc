package matching

import "readscape/internal/library"

// Result describes the outcome of matching one scene against the catalog.
// Entry is nil when no match could be produced; such results always need
// review.
type Result struct {
	Entry       *library.Soundscape
	Confidence  float64
	NeedsReview bool
}

// Match scores the scene descriptor against every catalog entry and selects
// the best fit. Ties break to the first entry in canonical catalog order, so
// selection is deterministic for a fixed catalog. An empty catalog yields a
// no-match result flagged for review rather than an error.
func Match(descriptor library.Descriptor, catalog []*library.Soundscape, weights Weights, confidenceThreshold float64) Result {
	if len(catalog) == 0 {
		return Result{NeedsReview: true}
	}

	var best *library.Soundscape
	bestScore := -1.0
	for _, entry := range catalog {
		if score := Score(descriptor, entry, weights); score > bestScore {
			best = entry
			bestScore = score
		}
	}

	return Result{
		Entry:       best,
		Confidence:  bestScore,
		NeedsReview: bestScore < confidenceThreshold,
	}
}
