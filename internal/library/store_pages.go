package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PagesForBook returns every page of a book in page order.
func (s *Store) PagesForBook(ctx context.Context, bookID int64) ([]*Page, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+pageColumns+` FROM pages WHERE book_id = ? ORDER BY page_number`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// PageByNumber fetches one page of a book.
func (s *Store) PageByNumber(ctx context.Context, bookID int64, pageNumber int) (*Page, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+pageColumns+` FROM pages WHERE book_id = ? AND page_number = ?`,
		bookID,
		pageNumber,
	)
	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return page, nil
}

// SavePageDescriptor upserts the classification result for a page. The
// degraded flag records whether the descriptor is the fallback default.
func (s *Store) SavePageDescriptor(ctx context.Context, pageID int64, descriptor Descriptor, degraded bool) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO page_descriptors (
            page_id, mood, setting, time_of_day, weather,
            activity_level, atmosphere, scene_type, dominant_elements, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(page_id) DO UPDATE SET
            mood = excluded.mood, setting = excluded.setting,
            time_of_day = excluded.time_of_day, weather = excluded.weather,
            activity_level = excluded.activity_level, atmosphere = excluded.atmosphere,
            scene_type = excluded.scene_type, dominant_elements = excluded.dominant_elements`,
		pageID,
		descriptor.Mood,
		descriptor.Setting,
		descriptor.TimeOfDay,
		descriptor.Weather,
		descriptor.ActivityLevel,
		descriptor.Atmosphere,
		descriptor.SceneType,
		descriptor.DominantElements,
		now,
	); err != nil {
		return fmt.Errorf("save descriptor: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE pages SET degraded = ? WHERE id = ?`,
		boolToInt(degraded),
		pageID,
	); err != nil {
		return fmt.Errorf("flag page: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit descriptor: %w", err)
	}
	return nil
}

// PageDescriptor fetches the stored classification for a page, or nil when
// the page has not been classified yet.
func (s *Store) PageDescriptor(ctx context.Context, pageID int64) (*Descriptor, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT mood, setting, time_of_day, weather, activity_level, atmosphere, scene_type, dominant_elements
         FROM page_descriptors WHERE page_id = ?`,
		pageID,
	)
	var d Descriptor
	err := row.Scan(&d.Mood, &d.Setting, &d.TimeOfDay, &d.Weather, &d.ActivityLevel, &d.Atmosphere, &d.SceneType, &d.DominantElements)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get descriptor: %w", err)
	}
	return &d, nil
}

// DescriptorsForBook returns classifications keyed by page number for every
// classified page of a book.
func (s *Store) DescriptorsForBook(ctx context.Context, bookID int64) (map[int]Descriptor, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT p.page_number, d.mood, d.setting, d.time_of_day, d.weather,
                d.activity_level, d.atmosphere, d.scene_type, d.dominant_elements
         FROM page_descriptors d
         JOIN pages p ON p.id = d.page_id
         WHERE p.book_id = ?
         ORDER BY p.page_number`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	descriptors := make(map[int]Descriptor)
	for rows.Next() {
		var pageNumber int
		var d Descriptor
		if err := rows.Scan(&pageNumber, &d.Mood, &d.Setting, &d.TimeOfDay, &d.Weather, &d.ActivityLevel, &d.Atmosphere, &d.SceneType, &d.DominantElements); err != nil {
			return nil, err
		}
		descriptors[pageNumber] = d
	}
	return descriptors, rows.Err()
}

const pageColumns = "id, book_id, page_number, text_content, scene_id, degraded, created_at"

func scanPage(scanner interface{ Scan(dest ...any) error }) (*Page, error) {
	var (
		id         int64
		bookID     int64
		pageNumber int
		text       string
		sceneID    sql.NullInt64
		degraded   sql.NullInt64
		createdRaw sql.NullString
	)

	if err := scanner.Scan(&id, &bookID, &pageNumber, &text, &sceneID, &degraded, &createdRaw); err != nil {
		return nil, err
	}

	page := &Page{
		ID:         id,
		BookID:     bookID,
		PageNumber: pageNumber,
		Text:       text,
	}
	if sceneID.Valid {
		v := sceneID.Int64
		page.SceneID = &v
	}
	if degraded.Valid {
		page.Degraded = degraded.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		page.CreatedAt = created
	}
	return page, nil
}
