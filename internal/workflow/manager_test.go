package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"readscape/internal/library"
	"readscape/internal/logging"
	"readscape/internal/services"
	"readscape/internal/stage"
	"readscape/internal/testsupport"
	"readscape/internal/workflow"
)

type fakeHandler struct {
	name    string
	execute func(ctx context.Context, book *library.Book) error
}

func (f *fakeHandler) Prepare(ctx context.Context, book *library.Book) error { return nil }

func (f *fakeHandler) Execute(ctx context.Context, book *library.Book) error {
	if f.execute != nil {
		return f.execute(ctx, book)
	}
	return nil
}

func (f *fakeHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func waitForStatus(t *testing.T, store *library.Store, bookID int64, want library.Status) *library.Book {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		book, err := store.GetByID(context.Background(), bookID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if book != nil && book.Status == want {
			return book
		}
		if book != nil && book.Status == library.StatusFailed && want != library.StatusFailed {
			t.Fatalf("book failed instead of reaching %s: %s (%s)", want, book.ErrorMessage, book.FailedStage)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("book %d never reached status %s", bookID, want)
	return nil
}

func TestManagerRunsBookThroughAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManager(cfg, store, logging.NewNop())
	manager.ConfigureStages(workflow.StageSet{
		Classifier: &fakeHandler{name: "classify"},
		Segmenter:  &fakeHandler{name: "segment"},
		Matcher: &fakeHandler{name: "match", execute: func(ctx context.Context, book *library.Book) error {
			book.Status = library.StatusReadyForReview
			return nil
		}},
	})

	book := testsupport.NewBook(t, store, "Pipeline Run", 3)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	final := waitForStatus(t, store, book.ID, library.StatusReadyForReview)
	if final.LastHeartbeat != nil {
		t.Fatalf("finished book should have no heartbeat: %+v", final.LastHeartbeat)
	}
}

func TestManagerMarksFailedStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManager(cfg, store, logging.NewNop())
	manager.ConfigureStages(workflow.StageSet{
		Classifier: &fakeHandler{name: "classify"},
		Segmenter: &fakeHandler{name: "segment", execute: func(ctx context.Context, book *library.Book) error {
			return services.Wrap(services.ErrValidation, "segment", "boundaries", "page 2 has no descriptor", nil)
		}},
		Matcher: &fakeHandler{name: "match"},
	})

	book := testsupport.NewBook(t, store, "Doomed", 2)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	failed := waitForStatus(t, store, book.ID, library.StatusFailed)
	if failed.FailedStage != "segment" {
		t.Fatalf("expected segment recorded as failed stage, got %q", failed.FailedStage)
	}
	if failed.ErrorMessage == "" {
		t.Fatal("expected an error message on the failed book")
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManager(cfg, store, logging.NewNop())
	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("expected error without configured stages")
	}
}

func TestManagerStartResetsStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "Stuck", 1)
	book.Status = library.StatusSegmenting
	if err := store.Update(ctx, book); err != nil {
		t.Fatalf("Update: %v", err)
	}

	manager := workflow.NewManager(cfg, store, logging.NewNop())
	manager.ConfigureStages(workflow.StageSet{
		Classifier: &fakeHandler{name: "classify"},
	})
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	// The stuck segmenting book returns to classified even though this
	// manager only runs the classify stage.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := store.GetByID(ctx, book.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status == library.StatusClassified {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("stuck book was not reset to its stage start status")
}

func TestManagerStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManager(cfg, store, logging.NewNop())
	manager.ConfigureStages(workflow.StageSet{Classifier: &fakeHandler{name: "classify"}})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	manager.Stop()
	manager.Stop()

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	manager.Stop()
}

func TestManagerHealthReportsHandlers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManager(cfg, store, logging.NewNop())
	manager.ConfigureStages(workflow.StageSet{
		Classifier: &fakeHandler{name: "classify"},
		Segmenter:  &fakeHandler{name: "segment"},
	})

	reports := manager.Health(context.Background())
	if len(reports) != 3 {
		t.Fatalf("expected store + 2 handler reports, got %d", len(reports))
	}
	for _, report := range reports {
		if !report.Ready {
			t.Fatalf("expected healthy report, got %+v", report)
		}
	}
}

func TestManagerRetryAfterFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	attempts := 0
	manager := workflow.NewManager(cfg, store, logging.NewNop())
	manager.ConfigureStages(workflow.StageSet{
		Classifier: &fakeHandler{name: "classify", execute: func(ctx context.Context, book *library.Book) error {
			attempts++
			if attempts == 1 {
				return errors.New("endpoint unavailable")
			}
			return nil
		}},
	})

	book := testsupport.NewBook(t, store, "Retryable", 1)

	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	waitForStatus(t, store, book.ID, library.StatusFailed)

	if _, err := store.RetryFailed(ctx, book.ID); err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	recovered := waitForStatus(t, store, book.ID, library.StatusClassified)
	if recovered.ErrorMessage != "" {
		t.Fatalf("retry should clear the error message, got %q", recovered.ErrorMessage)
	}
}
