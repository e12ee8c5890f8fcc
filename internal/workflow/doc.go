// Package workflow coordinates the book pipeline. A manager owns two lanes of
// workers: the classify lane runs the LLM-bound page classification stage and
// the light lane runs segmentation and matching. Workers claim books through
// compare-and-swap status transitions, heartbeat while working, and reclaim
// books whose worker died.
package workflow
