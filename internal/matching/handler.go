package matching

import (
	"context"
	"fmt"
	"log/slog"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/logging"
	"readscape/internal/services"
	"readscape/internal/stage"
)

// Handler runs the matching stage: every scene gets an assignment from the
// soundscape catalog, low-confidence and no-match scenes are flagged for
// review, and the book moves on to the review queue.
type Handler struct {
	store  *library.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandler builds the matching stage.
func NewHandler(cfg *config.Config, store *library.Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "matcher"),
	}
}

// Prepare initializes progress messaging prior to Execute.
func (h *Handler) Prepare(ctx context.Context, book *library.Book) error {
	book.ProgressStage = "Matching"
	book.ProgressMessage = "Matching scenes to soundscapes"
	book.ProgressPercent = 0
	return nil
}

// Execute matches each scene of the book against the catalog. Scenes that
// already hold an assignment from a previous run are skipped, keeping the
// stage resumable without duplicating history rows.
func (h *Handler) Execute(ctx context.Context, book *library.Book) error {
	logger := logging.WithContext(ctx, h.logger)

	scenes, err := h.store.ScenesForBook(ctx, book.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "match", "load scenes", "failed to load scenes", err)
	}
	if len(scenes) == 0 {
		return services.Wrap(services.ErrValidation, "match", "load scenes", "book has no scenes", nil)
	}

	catalog, err := h.store.ListSoundscapes(ctx)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "match", "load catalog", "failed to load catalog", err)
	}
	existing, err := h.store.CurrentAssignmentsForBook(ctx, book.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "match", "load assignments", "failed to load assignments", err)
	}

	weights := WeightsFromConfig(h.cfg.Matching)
	threshold := h.cfg.Matching.ConfidenceThreshold

	reviewCount := 0
	matchedCount := 0
	for i, scene := range scenes {
		if current, ok := existing[scene.ID]; ok {
			if current.NeedsReview && !current.Approved {
				reviewCount++
			}
			continue
		}

		result := Match(scene.Descriptor, catalog, weights, threshold)
		assignment := &library.Assignment{
			SceneID:     scene.ID,
			Confidence:  result.Confidence,
			Source:      library.SourceAutomated,
			NeedsReview: result.NeedsReview,
		}
		if result.Entry != nil {
			assignment.SoundscapeID = &result.Entry.ID
		} else {
			assignment.Confidence = 0
			logger.Warn("no soundscape available for scene",
				logging.Int64(logging.FieldSceneID, scene.ID))
		}

		if err := h.store.InsertAssignment(ctx, assignment); err != nil {
			return services.Wrap(services.ErrPersistence, "match", "insert assignment",
				fmt.Sprintf("failed to assign scene %d-%d", scene.StartPage, scene.EndPage), err)
		}
		matchedCount++
		if result.NeedsReview {
			reviewCount++
		}

		book.SetProgress("Matching",
			fmt.Sprintf("Matched %d of %d scenes", i+1, len(scenes)),
			float64(i+1)/float64(len(scenes))*100)
		if err := h.store.Update(ctx, book); err != nil {
			return services.Wrap(services.ErrPersistence, "match", "update progress", "failed to update progress", err)
		}
	}

	logger.Info(
		"scene matching complete",
		logging.Int("scenes", len(scenes)),
		logging.Int("matched", matchedCount),
		logging.Int("needs_review", reviewCount),
	)

	book.Status = library.StatusReadyForReview
	if reviewCount > 0 {
		book.SetProgress("Ready for review",
			fmt.Sprintf("%d of %d scenes need review", reviewCount, len(scenes)), 100)
	} else {
		book.SetProgress("Ready for review", "All scenes matched with high confidence", 100)
	}
	return nil
}

// HealthCheck reports whether the catalog holds any entries to match against.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	catalog, err := h.store.ListSoundscapes(ctx)
	if err != nil {
		return stage.Unhealthy("matcher", err.Error())
	}
	if len(catalog) == 0 {
		return stage.Unhealthy("matcher", "soundscape catalog is empty")
	}
	return stage.Healthy("matcher")
}
