// Package matching scores scene descriptors against the curated soundscape
// catalog and records assignments. Scoring is a pure function; the stage
// handler persists one append-only assignment per scene and flags
// low-confidence or unmatched scenes for admin review.
package matching
