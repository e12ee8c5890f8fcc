// Package export writes page descriptor corpora to parquet files for offline
// analysis of classification quality.
package export

import (
	"context"
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"readscape/internal/library"
	"readscape/internal/services"
)

// DescriptorRow is one page's classification flattened for columnar analysis.
type DescriptorRow struct {
	BookID           int64  `parquet:"book_id"`
	BookTitle        string `parquet:"book_title"`
	PageNumber       int32  `parquet:"page_number"`
	SceneID          int64  `parquet:"scene_id"`
	Degraded         bool   `parquet:"degraded"`
	Mood             string `parquet:"mood"`
	Setting          string `parquet:"setting"`
	TimeOfDay        string `parquet:"time_of_day"`
	Weather          string `parquet:"weather"`
	ActivityLevel    string `parquet:"activity_level"`
	Atmosphere       string `parquet:"atmosphere"`
	SceneType        string `parquet:"scene_type"`
	DominantElements string `parquet:"dominant_elements"`
}

// Descriptors writes every classified page of a book to a parquet file and
// returns the row count. Pages without a stored descriptor are skipped.
func Descriptors(ctx context.Context, store *library.Store, bookID int64, path string) (int, error) {
	book, err := store.GetByID(ctx, bookID)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "export", "descriptors", "load book", err)
	}
	if book == nil {
		return 0, services.Wrap(services.ErrNotFound, "export", "descriptors",
			fmt.Sprintf("book %d not found", bookID), nil)
	}

	pages, err := store.PagesForBook(ctx, bookID)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "export", "descriptors", "load pages", err)
	}
	descriptors, err := store.DescriptorsForBook(ctx, bookID)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "export", "descriptors", "load descriptors", err)
	}

	rows := make([]DescriptorRow, 0, len(descriptors))
	for _, page := range pages {
		descriptor, ok := descriptors[page.PageNumber]
		if !ok {
			continue
		}
		row := DescriptorRow{
			BookID:           book.ID,
			BookTitle:        book.Title,
			PageNumber:       int32(page.PageNumber),
			Degraded:         page.Degraded,
			Mood:             descriptor.Mood,
			Setting:          descriptor.Setting,
			TimeOfDay:        descriptor.TimeOfDay,
			Weather:          descriptor.Weather,
			ActivityLevel:    descriptor.ActivityLevel,
			Atmosphere:       descriptor.Atmosphere,
			SceneType:        descriptor.SceneType,
			DominantElements: descriptor.DominantElements,
		}
		if page.SceneID != nil {
			row.SceneID = *page.SceneID
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, services.Wrap(services.ErrValidation, "export", "descriptors",
			fmt.Sprintf("book %d has no classified pages", bookID), nil)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[DescriptorRow](file)
	if _, err := writer.Write(rows); err != nil {
		return 0, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	return len(rows), nil
}
