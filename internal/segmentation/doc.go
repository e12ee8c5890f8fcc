// Package segmentation detects scene boundaries from page descriptor
// similarity and aggregates page descriptors into per-scene descriptors.
// Boundary detection and aggregation are pure functions; the stage handler
// wires them to the store.
package segmentation
