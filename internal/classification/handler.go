package classification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/llm"
	"readscape/internal/logging"
	"readscape/internal/services"
	"readscape/internal/stage"
)

// Handler runs the page classification stage: every page of the claimed book
// gets a descriptor, either from the model or the degradation default.
type Handler struct {
	store      *library.Store
	cfg        *config.Config
	logger     *slog.Logger
	classifier Classifier
}

// NewHandler builds the classification stage with the configured backend.
func NewHandler(cfg *config.Config, store *library.Store, logger *slog.Logger) *Handler {
	var classifier Classifier
	switch cfg.Classifier.Backend {
	case "gemini":
		classifier = NewGeminiClassifier(cfg.Gemini, cfg.Classifier.MaxInputChars)
	default:
		client := llm.NewClient(
			cfg.LLM,
			llm.WithRetryMaxAttempts(cfg.Classifier.RetryMaxAttempts),
			llm.WithRetryBackoff(cfg.Classifier.RetryBaseDelay(), cfg.Classifier.RetryMaxDelay()),
		)
		classifier = NewLLMClassifier(client, cfg.Classifier.MaxInputChars)
	}
	return NewHandlerWithClassifier(cfg, store, logger, classifier)
}

// NewHandlerWithClassifier allows injecting the classifier (used in tests).
func NewHandlerWithClassifier(cfg *config.Config, store *library.Store, logger *slog.Logger, classifier Classifier) *Handler {
	stageLogger := logging.NewComponentLogger(logger, "classifier")
	return &Handler{
		store:      store,
		cfg:        cfg,
		logger:     stageLogger,
		classifier: classifier,
	}
}

// Prepare initializes progress messaging prior to Execute.
func (h *Handler) Prepare(ctx context.Context, book *library.Book) error {
	book.ProgressStage = "Classifying"
	book.ProgressMessage = "Classifying pages"
	book.ProgressPercent = 0
	return nil
}

// Execute classifies every unclassified page of the book. Pages already
// holding a descriptor are skipped, so a retried stage never re-requests
// completed work from the model. Page failures degrade to the default
// descriptor; only persistence failures abort the stage.
func (h *Handler) Execute(ctx context.Context, book *library.Book) error {
	logger := logging.WithContext(ctx, h.logger)

	pages, err := h.store.PagesForBook(ctx, book.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "classify", "load pages", "failed to load pages", err)
	}
	if len(pages) == 0 {
		return services.Wrap(services.ErrValidation, "classify", "load pages", "book has no pages", nil)
	}

	classified, err := h.store.DescriptorsForBook(ctx, book.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "classify", "load descriptors", "failed to load descriptors", err)
	}

	var pending []*library.Page
	for _, page := range pages {
		if _, done := classified[page.PageNumber]; !done {
			pending = append(pending, page)
		}
	}
	if len(pending) == 0 {
		logger.Info("all pages already classified", logging.Int("total_pages", len(pages)))
		book.Status = library.StatusClassified
		return nil
	}

	logger.Info(
		"starting page classification",
		logging.Int("total_pages", len(pages)),
		logging.Int("pending_pages", len(pending)),
		logging.Int("workers", h.workerCount()),
	)

	// The feeder and workers share this context; cancelling on return stops
	// them when a persistence failure aborts the result loop early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan pageResult, len(pending))
	jobs := make(chan *library.Page)

	var wg sync.WaitGroup
	for i := 0; i < h.workerCount(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range jobs {
				descriptor, degraded := h.classifyPage(ctx, page)
				results <- pageResult{page: page, descriptor: descriptor, degraded: degraded}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, page := range pending {
			select {
			case jobs <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := len(pages) - len(pending)
	degradedCount := 0
	for result := range results {
		if err := h.store.SavePageDescriptor(ctx, result.page.ID, result.descriptor, result.degraded); err != nil {
			return services.Wrap(services.ErrPersistence, "classify", "save descriptor",
				fmt.Sprintf("failed to save descriptor for page %d", result.page.PageNumber), err)
		}
		if result.degraded {
			degradedCount++
		}
		completed++
		book.SetProgress("Classifying",
			fmt.Sprintf("Classified %d of %d pages", completed, len(pages)),
			float64(completed)/float64(len(pages))*100)
		if err := h.store.Update(ctx, book); err != nil {
			return services.Wrap(services.ErrPersistence, "classify", "update progress", "failed to update progress", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrTransient, "classify", "classify pages", "classification interrupted", err)
	}

	logger.Info(
		"page classification complete",
		logging.Int("total_pages", len(pages)),
		logging.Int("degraded_pages", degradedCount),
	)

	book.Status = library.StatusClassified
	book.SetProgress("Classified", fmt.Sprintf("%d pages classified", len(pages)), 100)
	return nil
}

// HealthCheck verifies the classification backend is usable.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.classifier.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("classifier", err.Error())
	}
	return stage.Healthy("classifier")
}

type pageResult struct {
	page       *library.Page
	descriptor library.Descriptor
	degraded   bool
}

// classifyPage returns the model descriptor, or the default descriptor with
// degraded=true when classification fails for any reason. Retries for
// transient errors live inside the llm client; whatever escapes it is final
// for this run.
func (h *Handler) classifyPage(ctx context.Context, page *library.Page) (library.Descriptor, bool) {
	descriptor, err := h.classifier.ClassifyPage(ctx, page.Text)
	if err == nil {
		return descriptor, false
	}

	logger := logging.WithContext(ctx, h.logger)
	switch {
	case errors.Is(err, ErrEmptyPage):
		logger.Warn("page text empty, using default descriptor", logging.Int(logging.FieldPageNumber, page.PageNumber))
	case errors.Is(err, ErrMissingAttribute), errors.Is(err, ErrMalformedResponse):
		logger.Warn("classification response invalid, using default descriptor",
			logging.Int(logging.FieldPageNumber, page.PageNumber),
			logging.Error(err))
	case services.IsRetryable(err):
		logger.Warn("classification timed out, using default descriptor",
			logging.Int(logging.FieldPageNumber, page.PageNumber),
			logging.Error(err))
	default:
		logger.Warn("classification failed after retries, using default descriptor",
			logging.Int(logging.FieldPageNumber, page.PageNumber),
			logging.Error(err))
	}
	return library.DefaultDescriptor(), true
}

func (h *Handler) workerCount() int {
	if h.cfg.Classifier.PageWorkers > 0 {
		return h.cfg.Classifier.PageWorkers
	}
	return 1
}
