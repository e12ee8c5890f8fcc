package segmentation

import "readscape/internal/library"

// PageDescriptor pairs a page number with its classification.
type PageDescriptor struct {
	PageNumber int
	Descriptor library.Descriptor
}

// Boundaries computes scene start pages from an ordered descriptor sequence.
// The result always starts with the first page and is strictly increasing: a
// new scene begins wherever adjacent-page similarity drops below the
// threshold. An empty input yields an empty boundary list.
func Boundaries(pages []PageDescriptor, weights Weights, threshold float64) []int {
	if len(pages) == 0 {
		return nil
	}
	boundaries := []int{pages[0].PageNumber}
	for i := 1; i < len(pages); i++ {
		if Similarity(pages[i-1].Descriptor, pages[i].Descriptor, weights) < threshold {
			boundaries = append(boundaries, pages[i].PageNumber)
		}
	}
	return boundaries
}
