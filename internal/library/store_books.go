package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// PageInput carries extracted page content for book creation.
type PageInput struct {
	PageNumber int
	Text       string
}

// CreateBook inserts a new book with its extracted pages in one transaction.
// Page numbers must be positive and strictly increasing; gaps are allowed
// because the extractor drops front matter and short pages without renumbering.
func (s *Store) CreateBook(ctx context.Context, title, author string, pages []PageInput) (*Book, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("title is required")
	}
	previous := 0
	for i, page := range pages {
		if page.PageNumber <= previous {
			return nil, fmt.Errorf("page numbers must be positive and strictly increasing, got %d at index %d", page.PageNumber, i)
		}
		previous = page.PageNumber
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO books (
            title, author, status, total_pages, created_at, updated_at,
            progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(title),
		nullableString(strings.TrimSpace(author)),
		StatusExtracted,
		len(pages),
		timestamp,
		timestamp,
		"Extracted",
		0.0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	bookID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	insertPage, err := tx.PrepareContext(
		ctx,
		`INSERT INTO pages (book_id, page_number, text_content, created_at) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare page insert: %w", err)
	}
	defer insertPage.Close()

	for _, page := range pages {
		if _, err := insertPage.ExecContext(ctx, bookID, page.PageNumber, page.Text, timestamp); err != nil {
			return nil, fmt.Errorf("insert page %d: %w", page.PageNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit book: %w", err)
	}

	return s.GetByID(ctx, bookID)
}

// GetByID fetches a book by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// Update persists changes to an existing book record.
func (s *Store) Update(ctx context.Context, book *Book) error {
	if book == nil {
		return errors.New("book is nil")
	}
	book.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE books
         SET title = ?, author = ?, status = ?, total_pages = ?, error_message = ?,
             failed_stage = ?, progress_stage = ?, progress_percent = ?, progress_message = ?,
             last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		book.Title,
		nullableString(book.Author),
		book.Status,
		book.TotalPages,
		nullableString(book.ErrorMessage),
		nullableString(book.FailedStage),
		nullableString(book.ProgressStage),
		book.ProgressPercent,
		nullableString(book.ProgressMessage),
		nullableTime(book.LastHeartbeat),
		book.UpdatedAt.Format(time.RFC3339Nano),
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// List returns books filtered by status set (or all books when no status is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Book, error) {
	builder := sq.Select(strings.Split(bookColumns, ", ")...).
		From("books").
		OrderBy("created_at", "id")
	if len(statuses) > 0 {
		values := make([]any, len(statuses))
		for i, status := range statuses {
			values[i] = status
		}
		builder = builder.Where(sq.Eq{"status": values})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// ClaimNext atomically claims the oldest book in one of the given start
// statuses, moving it to the matching processing status. Concurrent workers
// calling ClaimNext never receive the same book: the UPDATE re-checks the
// status, so a lost race yields nil and the caller polls again.
func (s *Store) ClaimNext(ctx context.Context, start, processing Status) (*Book, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id FROM books WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		start,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find claimable book: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE books SET status = ?, last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		processing,
		now,
		now,
		id,
		start,
	)
	if err != nil {
		return nil, fmt.Errorf("claim book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight book.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE books SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns books stuck in a processing status back to
// the stage's start status when their heartbeat expired.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	cutoffStr := cutoff.UTC().Format(time.RFC3339Nano)

	var total int64
	for processing, start := range stageStartForProcessing {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE books
            SET status = ?, progress_stage = 'Reclaimed from stale processing',
                progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
            WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
			start,
			now,
			processing,
			cutoffStr,
		)
		if err != nil {
			return total, fmt.Errorf("reclaim stale books: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// ResetStuckProcessing returns all in-flight books to their stage start
// statuses regardless of heartbeat, used on daemon startup.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var total int64
	for processing, start := range stageStartForProcessing {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE books
            SET status = ?, progress_stage = 'Reset from stuck processing',
                progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
            WHERE status = ?`,
			start,
			now,
			processing,
		)
		if err != nil {
			return total, fmt.Errorf("reset stuck books: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// RetryFailed moves failed books back to the start of the stage that failed,
// or to extracted when the failed stage is unknown. With no ids every failed
// book is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	books, err := s.List(ctx, StatusFailed)
	if err != nil {
		return 0, err
	}

	wanted := map[int64]struct{}{}
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var retried int64
	for _, book := range books {
		if len(wanted) > 0 {
			if _, ok := wanted[book.ID]; !ok {
				continue
			}
		}
		book.Status = retryStatusForStage(book.FailedStage)
		book.ErrorMessage = ""
		book.FailedStage = ""
		book.SetProgress("Retry requested", "", 0)
		book.LastHeartbeat = nil
		if err := s.Update(ctx, book); err != nil {
			return retried, err
		}
		retried++
	}
	return retried, nil
}

func retryStatusForStage(stage string) Status {
	switch stage {
	case "segment":
		return StatusClassified
	case "match":
		return StatusSegmented
	default:
		return StatusExtracted
	}
}

// Remove deletes a book and, through foreign keys, its pages, descriptors,
// scenes, and assignments.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of books grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM books GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("library stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates library state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusExtracted:
			health.Extracted += count
		case StatusFailed:
			health.Failed += count
		case StatusReadyForReview:
			health.Review += count
		case StatusPublished:
			health.Published += count
		default:
			if _, ok := processingStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

const bookColumns = "id, title, author, status, total_pages, error_message, failed_stage, progress_stage, progress_percent, progress_message, last_heartbeat, created_at, updated_at"

func scanBook(scanner interface{ Scan(dest ...any) error }) (*Book, error) {
	var (
		id               int64
		title            string
		author           sql.NullString
		statusStr        string
		totalPages       int
		errorMessage     sql.NullString
		failedStage      sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&author,
		&statusStr,
		&totalPages,
		&errorMessage,
		&failedStage,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	book := &Book{
		ID:              id,
		Title:           title,
		Author:          author.String,
		Status:          Status(statusStr),
		TotalPages:      totalPages,
		ErrorMessage:    errorMessage.String,
		FailedStage:     failedStage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		book.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		book.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			book.LastHeartbeat = &heartbeat
		}
	}
	return book, nil
}
