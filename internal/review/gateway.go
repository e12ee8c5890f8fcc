package review

import (
	"context"
	"fmt"
	"log/slog"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/logging"
	"readscape/internal/services"
)

// Gateway is the admin surface over scene assignments: overrides, clears, and
// the publish gate. Overrides never mutate automated rows; every decision is a
// new assignment row so the audit trail stays complete.
type Gateway struct {
	cfg    *config.Config
	store  *library.Store
	logger *slog.Logger
}

func NewGateway(cfg *config.Config, store *library.Store, logger *slog.Logger) *Gateway {
	return &Gateway{cfg: cfg, store: store, logger: logger}
}

// Override pins a scene to a catalog entry. The new row is approved with full
// confidence and supersedes whatever the matcher produced.
func (g *Gateway) Override(ctx context.Context, sceneID, soundscapeID int64) (*library.Assignment, error) {
	scene, book, err := g.sceneAndBook(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	if book.IsProcessing() {
		return nil, services.Wrap(services.ErrValidation, "review", "override",
			fmt.Sprintf("book %d is still processing (%s)", book.ID, book.Status), nil)
	}

	entry, err := g.store.SoundscapeByID(ctx, soundscapeID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "override", "load soundscape", err)
	}
	if entry == nil {
		return nil, services.Wrap(services.ErrNotFound, "review", "override",
			fmt.Sprintf("soundscape %d not found", soundscapeID), nil)
	}

	assignment := &library.Assignment{
		SceneID:      scene.ID,
		SoundscapeID: &entry.ID,
		Confidence:   1.0,
		Source:       library.SourceAdminOverride,
		Approved:     true,
		NeedsReview:  false,
	}
	if err := g.store.InsertAssignment(ctx, assignment); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "override", "insert assignment", err)
	}

	g.logger.Info("scene override applied",
		logging.Int64("scene_id", scene.ID),
		logging.Int64("book_id", book.ID),
		logging.Int64("soundscape_id", entry.ID))
	return assignment, nil
}

// Approve accepts the current automated assignment as-is.
func (g *Gateway) Approve(ctx context.Context, sceneID int64) (*library.Assignment, error) {
	scene, _, err := g.sceneAndBook(ctx, sceneID)
	if err != nil {
		return nil, err
	}

	current, err := g.store.CurrentAssignment(ctx, scene.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "approve", "load assignment", err)
	}
	if current == nil || current.SoundscapeID == nil {
		return nil, services.Wrap(services.ErrValidation, "review", "approve",
			fmt.Sprintf("scene %d has no soundscape to approve", sceneID), nil)
	}

	assignment := &library.Assignment{
		SceneID:      scene.ID,
		SoundscapeID: current.SoundscapeID,
		Confidence:   current.Confidence,
		Source:       library.SourceAdminOverride,
		Approved:     true,
		NeedsReview:  false,
	}
	if err := g.store.InsertAssignment(ctx, assignment); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "approve", "insert assignment", err)
	}
	return assignment, nil
}

// Clear drops all assignment history for a scene, returning it to the
// unresolved state the publish gate blocks on.
func (g *Gateway) Clear(ctx context.Context, sceneID int64) error {
	if _, _, err := g.sceneAndBook(ctx, sceneID); err != nil {
		return err
	}
	removed, err := g.store.ClearAssignments(ctx, sceneID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "review", "clear", "clear assignments", err)
	}
	g.logger.Info("scene assignments cleared",
		logging.Int64("scene_id", sceneID),
		logging.Int64("removed", removed))
	return nil
}

// Publish moves a reviewed book to published. Every scene must carry an active
// assignment that is either approved or confidently matched; any unresolved
// scene blocks the whole book.
func (g *Gateway) Publish(ctx context.Context, bookID int64) (*library.Book, error) {
	book, err := g.store.GetByID(ctx, bookID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "publish", "load book", err)
	}
	if book == nil {
		return nil, services.Wrap(services.ErrNotFound, "review", "publish",
			fmt.Sprintf("book %d not found", bookID), nil)
	}
	if book.Status != library.StatusReadyForReview {
		return nil, services.Wrap(services.ErrValidation, "review", "publish",
			fmt.Sprintf("book %d is %s, not ready_for_review", bookID, book.Status), nil)
	}

	unresolved, err := g.store.UnresolvedSceneCount(ctx, bookID, g.cfg.Matching.ConfidenceThreshold)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "publish", "count unresolved scenes", err)
	}
	if unresolved > 0 {
		return nil, services.Wrap(services.ErrValidation, "review", "publish",
			fmt.Sprintf("%d scenes still need review", unresolved), nil)
	}

	book.Status = library.StatusPublished
	book.SetProgress("publish", "available to readers", 100)
	if err := g.store.Update(ctx, book); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "publish", "update book", err)
	}

	g.logger.Info("book published", logging.Int64("book_id", book.ID), logging.String("title", book.Title))
	return book, nil
}

func (g *Gateway) sceneAndBook(ctx context.Context, sceneID int64) (*library.Scene, *library.Book, error) {
	scene, err := g.store.SceneByID(ctx, sceneID)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrPersistence, "review", "load", "load scene", err)
	}
	if scene == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "review", "load",
			fmt.Sprintf("scene %d not found", sceneID), nil)
	}
	book, err := g.store.GetByID(ctx, scene.BookID)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrPersistence, "review", "load", "load book", err)
	}
	if book == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "review", "load",
			fmt.Sprintf("book %d not found", scene.BookID), nil)
	}
	return scene, book, nil
}
