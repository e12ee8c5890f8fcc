package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReplaceScenes atomically replaces a book's scenes with a freshly segmented
// set and points each page at its covering scene. Assignments hanging off the
// old scenes are removed through the scene foreign key, so re-running
// segmentation always invalidates stale matches.
func (s *Store) ReplaceScenes(ctx context.Context, bookID int64, scenes []Scene) ([]Scene, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE book_id = ?`, bookID); err != nil {
		return nil, fmt.Errorf("delete old scenes: %w", err)
	}

	saved := make([]Scene, 0, len(scenes))
	for _, scene := range scenes {
		if scene.StartPage < 1 || scene.EndPage < scene.StartPage {
			return nil, fmt.Errorf("invalid scene range %d-%d", scene.StartPage, scene.EndPage)
		}
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO scenes (
                book_id, start_page, end_page, mood, setting, time_of_day, weather,
                activity_level, atmosphere, scene_type, dominant_elements, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			bookID,
			scene.StartPage,
			scene.EndPage,
			scene.Descriptor.Mood,
			scene.Descriptor.Setting,
			scene.Descriptor.TimeOfDay,
			scene.Descriptor.Weather,
			scene.Descriptor.ActivityLevel,
			scene.Descriptor.Atmosphere,
			scene.Descriptor.SceneType,
			scene.Descriptor.DominantElements,
			timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert scene: %w", err)
		}
		sceneID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE pages SET scene_id = ? WHERE book_id = ? AND page_number BETWEEN ? AND ?`,
			sceneID,
			bookID,
			scene.StartPage,
			scene.EndPage,
		); err != nil {
			return nil, fmt.Errorf("link pages to scene: %w", err)
		}

		scene.ID = sceneID
		scene.BookID = bookID
		scene.CreatedAt = now
		saved = append(saved, scene)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scenes: %w", err)
	}
	return saved, nil
}

// ScenesForBook returns a book's scenes ordered by start page.
func (s *Store) ScenesForBook(ctx context.Context, bookID int64) ([]*Scene, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE book_id = ? ORDER BY start_page`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	return scenes, rows.Err()
}

// SceneByID fetches one scene.
func (s *Store) SceneByID(ctx context.Context, id int64) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE id = ?`, id)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return scene, nil
}

// SceneForPage resolves the scene covering one page of a book.
func (s *Store) SceneForPage(ctx context.Context, bookID int64, pageNumber int) (*Scene, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE book_id = ? AND start_page <= ? AND end_page >= ?`,
		bookID,
		pageNumber,
		pageNumber,
	)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scene for page: %w", err)
	}
	return scene, nil
}

const sceneColumns = "id, book_id, start_page, end_page, mood, setting, time_of_day, weather, activity_level, atmosphere, scene_type, dominant_elements, created_at"

func scanScene(scanner interface{ Scan(dest ...any) error }) (*Scene, error) {
	var (
		scene      Scene
		createdRaw sql.NullString
	)
	if err := scanner.Scan(
		&scene.ID,
		&scene.BookID,
		&scene.StartPage,
		&scene.EndPage,
		&scene.Descriptor.Mood,
		&scene.Descriptor.Setting,
		&scene.Descriptor.TimeOfDay,
		&scene.Descriptor.Weather,
		&scene.Descriptor.ActivityLevel,
		&scene.Descriptor.Atmosphere,
		&scene.Descriptor.SceneType,
		&scene.Descriptor.DominantElements,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		scene.CreatedAt = created
	}
	return &scene, nil
}
