package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSoundscapeInUse is returned when a catalog delete would orphan a
// published book's assignment.
var ErrSoundscapeInUse = errors.New("soundscape is referenced by a published book")

// UpsertSoundscape inserts a catalog entry or updates the existing one with
// the same category and name. Position is preserved on update so catalog
// order stays stable across re-syncs.
func (s *Store) UpsertSoundscape(ctx context.Context, entry *Soundscape) error {
	if entry == nil {
		return errors.New("soundscape is nil")
	}
	if strings.TrimSpace(entry.Category) == "" || strings.TrimSpace(entry.Name) == "" {
		return errors.New("soundscape category and name are required")
	}
	now := time.Now().UTC()

	if entry.Position == 0 {
		row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM soundscapes`)
		if err := row.Scan(&entry.Position); err != nil {
			return fmt.Errorf("next catalog position: %w", err)
		}
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO soundscapes (
            category, name, url, mood, setting, weather, time_of_day, intensity, position, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(category, name) DO UPDATE SET
            url = excluded.url, mood = excluded.mood, setting = excluded.setting,
            weather = excluded.weather, time_of_day = excluded.time_of_day,
            intensity = excluded.intensity`,
		entry.Category,
		entry.Name,
		entry.URL,
		nullableString(entry.Mood),
		nullableString(entry.Setting),
		nullableString(entry.Weather),
		nullableString(entry.TimeOfDay),
		entry.Intensity,
		entry.Position,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert soundscape: %w", err)
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, position FROM soundscapes WHERE category = ? AND name = ?`,
		entry.Category,
		entry.Name,
	)
	if err := row.Scan(&entry.ID, &entry.Position); err != nil {
		return fmt.Errorf("read soundscape id: %w", err)
	}
	return nil
}

// ListSoundscapes returns the catalog in its canonical order.
func (s *Store) ListSoundscapes(ctx context.Context) ([]*Soundscape, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+soundscapeColumns+` FROM soundscapes ORDER BY position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list soundscapes: %w", err)
	}
	defer rows.Close()

	var entries []*Soundscape
	for rows.Next() {
		entry, err := scanSoundscape(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SoundscapeByID fetches one catalog entry.
func (s *Store) SoundscapeByID(ctx context.Context, id int64) (*Soundscape, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+soundscapeColumns+` FROM soundscapes WHERE id = ?`, id)
	entry, err := scanSoundscape(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get soundscape: %w", err)
	}
	return entry, nil
}

// DeleteSoundscape removes a catalog entry unless a published book's active
// assignment still references it.
func (s *Store) DeleteSoundscape(ctx context.Context, id int64) (bool, error) {
	inUse, err := s.SoundscapeInUseByPublished(ctx, id)
	if err != nil {
		return false, err
	}
	if inUse {
		return false, ErrSoundscapeInUse
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM soundscapes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete soundscape: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const soundscapeColumns = "id, category, name, url, mood, setting, weather, time_of_day, intensity, position, created_at"

func scanSoundscape(scanner interface{ Scan(dest ...any) error }) (*Soundscape, error) {
	var (
		entry      Soundscape
		mood       sql.NullString
		setting    sql.NullString
		weather    sql.NullString
		timeOfDay  sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.Category,
		&entry.Name,
		&entry.URL,
		&mood,
		&setting,
		&weather,
		&timeOfDay,
		&entry.Intensity,
		&entry.Position,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	entry.Mood = mood.String
	entry.Setting = setting.String
	entry.Weather = weather.String
	entry.TimeOfDay = timeOfDay.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	return &entry, nil
}
