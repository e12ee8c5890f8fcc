package segmentation

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

// Handler runs the segmentation stage: boundary detection over the page
// descriptors, descriptor aggregation per range, and transactional scene
// replacement. Re-running the stage is safe because scene replacement
// deletes-then-recreates the book's scenes.
type Handler struct {
	store  *library.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandler builds the segmentation stage.
func NewHandler(cfg *config.Config, store *library.Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "segmenter"),
	}
}

// Prepare initializes progress messaging prior to Execute.
func (h *Handler) Prepare(ctx context.Context, book *library.Book) error {
	book.ProgressStage = "Segmenting"
	book.ProgressMessage = "Detecting scene boundaries"
	book.ProgressPercent = 0
	return nil
}

// Execute segments the book into scenes and persists them.
func (h *Handler) Execute(ctx context.Context, book *library.Book) error {
	logger := logging.WithContext(ctx, h.logger)

	pages, err := h.store.PagesForBook(ctx, book.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "segment", "load pages", "failed to load pages", err)
	}
	descriptors, err := h.store.DescriptorsForBook(ctx, book.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "segment", "load descriptors", "failed to load descriptors", err)
	}

	sequence := make([]PageDescriptor, 0, len(pages))
	for _, page := range pages {
		descriptor, ok := descriptors[page.PageNumber]
		if !ok {
			return services.Wrap(services.ErrValidation, "segment", "load descriptors",
				fmt.Sprintf("page %d has no descriptor", page.PageNumber), nil)
		}
		sequence = append(sequence, PageDescriptor{PageNumber: page.PageNumber, Descriptor: descriptor})
	}

	weights := WeightsFromConfig(h.cfg.Segmentation)
	boundaries := Boundaries(sequence, weights, h.cfg.Segmentation.SimilarityThreshold)
	scenes := BuildScenes(sequence, boundaries)

	saved, err := h.store.ReplaceScenes(ctx, book.ID, scenes)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "segment", "replace scenes", "failed to persist scenes", err)
	}

	logger.Info(
		"segmented book into scenes",
		logging.Int("pages", len(sequence)),
		logging.Int("scenes", len(saved)),
		logging.Float64("threshold", h.cfg.Segmentation.SimilarityThreshold),
	)

	book.Status = library.StatusSegmented
	book.SetProgress("Segmented", fmt.Sprintf("%d scenes", len(saved)), 100)
	return nil
}

// HealthCheck reports segmentation readiness. The stage is pure computation
// over the store, so only the database matters.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if _, err := h.store.CheckHealth(ctx); err != nil {
		return stage.Unhealthy("segmenter", err.Error())
	}
	return stage.Healthy("segmenter")
}
