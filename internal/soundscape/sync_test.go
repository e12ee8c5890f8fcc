package soundscape_test

import (
	"context"
	"testing"

	"readscape/internal/logging"
	"readscape/internal/soundscape"
	"readscape/internal/testsupport"
)

func intp(v int) *int { return &v }

func TestSyncPersistsEntriesInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	entries := []soundscape.Entry{
		{Category: "Rain", Name: "Soft Rain", URL: "https://a/rain.ogg", Mood: "Calm", Intensity: intp(3)},
		{Category: "rain", Name: "Thunderstorm", URL: "https://a/storm.ogg", Mood: "tense", Intensity: intp(8)},
		{Category: "city", Name: "Morning Market", URL: "https://a/market.ogg"},
	}

	result, err := soundscape.Sync(ctx, store, entries, logging.NewNop())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Persisted != 3 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	catalog, err := store.ListSoundscapes(ctx)
	if err != nil {
		t.Fatalf("ListSoundscapes: %v", err)
	}
	if len(catalog) != 3 {
		t.Fatalf("expected 3 catalog rows, got %d", len(catalog))
	}
	if catalog[0].Name != "Soft Rain" || catalog[0].Category != "rain" || catalog[0].Mood != "calm" {
		t.Fatalf("tags not normalized: %+v", catalog[0])
	}
	if catalog[2].Intensity != -1 {
		t.Fatalf("untagged intensity should persist as -1, got %d", catalog[2].Intensity)
	}
}

func TestSyncRefreshKeepsCatalogOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := []soundscape.Entry{
		{Category: "rain", Name: "Soft Rain", URL: "https://a/rain.ogg"},
		{Category: "city", Name: "Morning Market", URL: "https://a/market.ogg"},
	}
	if _, err := soundscape.Sync(ctx, store, first, logging.NewNop()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	// Re-sync in reverse order with refreshed tags.
	second := []soundscape.Entry{
		{Category: "city", Name: "Morning Market", URL: "https://a/market-v2.ogg", Mood: "joyful"},
		{Category: "rain", Name: "Soft Rain", URL: "https://a/rain.ogg"},
	}
	if _, err := soundscape.Sync(ctx, store, second, logging.NewNop()); err != nil {
		t.Fatalf("re-sync: %v", err)
	}

	catalog, err := store.ListSoundscapes(ctx)
	if err != nil {
		t.Fatalf("ListSoundscapes: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("expected 2 catalog rows, got %d", len(catalog))
	}
	if catalog[0].Name != "Soft Rain" {
		t.Fatalf("re-sync must not reorder the catalog: %+v", catalog)
	}
	if catalog[1].URL != "https://a/market-v2.ogg" || catalog[1].Mood != "joyful" {
		t.Fatalf("re-sync should refresh tags: %+v", catalog[1])
	}
}

func TestSyncSkipsInvalidEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	entries := []soundscape.Entry{
		{Category: "rain", Name: "Soft Rain", URL: "https://a/rain.ogg"},
		{Category: "", Name: "", URL: "https://a/unnamed.ogg"},
	}

	result, err := soundscape.Sync(ctx, store, entries, logging.NewNop())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Persisted != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
