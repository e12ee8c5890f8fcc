// Package library persists the content pipeline state: books and their
// extracted pages, page and scene descriptors, soundscape catalog entries,
// and scene assignments. Storage is a single SQLite database with embedded
// migrations; writes that must stay consistent (book plus pages, scene
// replacement) run in transactions.
package library
