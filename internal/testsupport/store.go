package testsupport

import (
	"context"
	"fmt"
	"testing"

	"readscape/internal/config"
	"readscape/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBook creates a book with the given number of generated pages.
func NewBook(t testing.TB, store *library.Store, title string, pageCount int) *library.Book {
	t.Helper()

	pages := make([]library.PageInput, pageCount)
	for i := range pages {
		pages[i] = library.PageInput{
			PageNumber: i + 1,
			Text:       fmt.Sprintf("Page %d text.", i+1),
		}
	}
	book, err := store.CreateBook(context.Background(), title, "", pages)
	if err != nil {
		t.Fatalf("store.CreateBook: %v", err)
	}
	return book
}

// SeedSoundscape inserts one catalog entry and returns it.
func SeedSoundscape(t testing.TB, store *library.Store, category, name string, tags library.Soundscape) *library.Soundscape {
	t.Helper()

	entry := tags
	entry.Category = category
	entry.Name = name
	if entry.URL == "" {
		entry.URL = fmt.Sprintf("https://audio.example.com/%s/%s.ogg", category, name)
	}
	if err := store.UpsertSoundscape(context.Background(), &entry); err != nil {
		t.Fatalf("store.UpsertSoundscape: %v", err)
	}
	return &entry
}
