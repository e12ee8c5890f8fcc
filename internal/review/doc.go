// Package review implements the human side of the pipeline: listing flagged
// scenes, overriding or approving assignments, and the publish gate that keeps
// unresolved books away from readers.
package review
