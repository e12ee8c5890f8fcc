// Package classification turns page text into eight-attribute descriptors
// using an external language model. The stage handler fans pages out to a
// bounded worker pool, skips pages classified on a previous run, and degrades
// failed pages to a fixed default descriptor so one bad page never aborts a
// book.
package classification
