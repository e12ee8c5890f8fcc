package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// InsertAssignment appends a new assignment row for a scene. Existing rows
// are never modified; the active assignment is always the most recent row.
func (s *Store) InsertAssignment(ctx context.Context, assignment *Assignment) error {
	if assignment == nil {
		return errors.New("assignment is nil")
	}
	now := time.Now().UTC()

	var soundscapeID any
	if assignment.SoundscapeID != nil {
		soundscapeID = *assignment.SoundscapeID
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO assignments (
            scene_id, soundscape_id, confidence, source, approved, needs_review, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		assignment.SceneID,
		soundscapeID,
		assignment.Confidence,
		assignment.Source,
		boolToInt(assignment.Approved),
		boolToInt(assignment.NeedsReview),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	assignment.ID = id
	assignment.CreatedAt = now
	return nil
}

// CurrentAssignment returns the active (most recent) assignment for a scene,
// or nil when the scene has none.
func (s *Store) CurrentAssignment(ctx context.Context, sceneID int64) (*Assignment, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE scene_id = ? ORDER BY id DESC LIMIT 1`,
		sceneID,
	)
	assignment, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current assignment: %w", err)
	}
	return assignment, nil
}

// AssignmentHistory returns every assignment row for a scene, oldest first.
func (s *Store) AssignmentHistory(ctx context.Context, sceneID int64) ([]*Assignment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE scene_id = ? ORDER BY id`,
		sceneID,
	)
	if err != nil {
		return nil, fmt.Errorf("assignment history: %w", err)
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

// CurrentAssignmentsForBook returns the active assignment per scene, keyed by
// scene id. Scenes without any assignment are absent from the map.
func (s *Store) CurrentAssignmentsForBook(ctx context.Context, bookID int64) (map[int64]*Assignment, error) {
	columns := make([]string, len(assignmentColumnList))
	for i, col := range assignmentColumnList {
		columns[i] = "a." + col
	}
	query, args, err := sq.Select(columns...).
		From("assignments a").
		Join("scenes sc ON sc.id = a.scene_id").
		Where(sq.Eq{"sc.book_id": bookID}).
		Where("a.id = (SELECT MAX(id) FROM assignments WHERE scene_id = a.scene_id)").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build assignments query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query current assignments: %w", err)
	}
	defer rows.Close()

	current := make(map[int64]*Assignment)
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		current[assignment.SceneID] = assignment
	}
	return current, rows.Err()
}

// ClearAssignments removes every assignment row for a scene, returning it to
// the unassigned state.
func (s *Store) ClearAssignments(ctx context.Context, sceneID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE scene_id = ?`, sceneID)
	if err != nil {
		return 0, fmt.Errorf("clear assignments: %w", err)
	}
	return res.RowsAffected()
}

// UnresolvedSceneCount counts scenes of a book whose active assignment is
// missing, flagged for review without approval, or below the given
// confidence floor without approval. A zero result means the book passes the
// publish gate.
func (s *Store) UnresolvedSceneCount(ctx context.Context, bookID int64, confidenceFloor float64) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM scenes sc
         LEFT JOIN assignments a ON a.id = (SELECT MAX(id) FROM assignments WHERE scene_id = sc.id)
         WHERE sc.book_id = ?
           AND (a.id IS NULL
                OR a.soundscape_id IS NULL
                OR (a.approved = 0 AND (a.needs_review = 1 OR a.confidence < ?)))`,
		bookID,
		confidenceFloor,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count unresolved scenes: %w", err)
	}
	return count, nil
}

// SoundscapeInUseByPublished reports whether any published book's active
// assignment references the soundscape.
func (s *Store) SoundscapeInUseByPublished(ctx context.Context, soundscapeID int64) (bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS(
            SELECT 1 FROM assignments a
            JOIN scenes sc ON sc.id = a.scene_id
            JOIN books b ON b.id = sc.book_id
            WHERE a.soundscape_id = ?
              AND b.status = ?
              AND a.id = (SELECT MAX(id) FROM assignments WHERE scene_id = a.scene_id)
        )`,
		soundscapeID,
		StatusPublished,
	)
	var exists int
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check soundscape references: %w", err)
	}
	return exists != 0, nil
}

const assignmentColumns = "id, scene_id, soundscape_id, confidence, source, approved, needs_review, created_at"

var assignmentColumnList = []string{"id", "scene_id", "soundscape_id", "confidence", "source", "approved", "needs_review", "created_at"}

func scanAssignment(scanner interface{ Scan(dest ...any) error }) (*Assignment, error) {
	var (
		assignment   Assignment
		soundscapeID sql.NullInt64
		approved     sql.NullInt64
		needsReview  sql.NullInt64
		createdRaw   sql.NullString
	)
	if err := scanner.Scan(
		&assignment.ID,
		&assignment.SceneID,
		&soundscapeID,
		&assignment.Confidence,
		&assignment.Source,
		&approved,
		&needsReview,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	if soundscapeID.Valid {
		v := soundscapeID.Int64
		assignment.SoundscapeID = &v
	}
	assignment.Approved = approved.Valid && approved.Int64 != 0
	assignment.NeedsReview = needsReview.Valid && needsReview.Int64 != 0
	if created, err := parseTimeString(createdRaw.String); err == nil {
		assignment.CreatedAt = created
	}
	return &assignment, nil
}
