package soundscape

import (
	"context"
	"fmt"
	"log/slog"

	"readscape/internal/library"
	"readscape/internal/logging"
)

// SyncResult summarizes one catalog sync pass.
type SyncResult struct {
	Persisted int
	Skipped   int
}

// Sync persists entries into the catalog in input order. New entries take the
// next free position; existing (category, name) pairs get their tags refreshed
// without moving. Entries that fail validation at the store are skipped and
// logged, not fatal, so one bad asset cannot block a sync.
func Sync(ctx context.Context, store *library.Store, entries []Entry, logger *slog.Logger) (SyncResult, error) {
	var result SyncResult
	for _, entry := range entries {
		record := entry.toRecord()
		if err := store.UpsertSoundscape(ctx, record); err != nil {
			if ctx.Err() != nil {
				return result, fmt.Errorf("catalog sync interrupted: %w", ctx.Err())
			}
			result.Skipped++
			logger.Warn("skipping catalog entry",
				logging.String("category", entry.Category),
				logging.String("name", entry.Name),
				logging.Error(err))
			continue
		}
		result.Persisted++
	}
	return result, nil
}

func (e Entry) toRecord() *library.Soundscape {
	intensity := -1
	if e.Intensity != nil {
		intensity = *e.Intensity
	}
	return &library.Soundscape{
		Category:  normalizeTag(e.Category),
		Name:      e.Name,
		URL:       e.URL,
		Mood:      normalizeTag(e.Mood),
		Setting:   normalizeTag(e.Setting),
		Weather:   normalizeTag(e.Weather),
		TimeOfDay: normalizeTag(e.TimeOfDay),
		Intensity: intensity,
	}
}
