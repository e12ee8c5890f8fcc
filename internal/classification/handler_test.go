package classification_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"readscape/internal/classification"
	"readscape/internal/library"
	"readscape/internal/logging"
	"readscape/internal/services"
	"readscape/internal/testsupport"
)

type fakeClassifier struct {
	classify func(text string) (library.Descriptor, error)
	calls    int
}

func (f *fakeClassifier) ClassifyPage(_ context.Context, text string) (library.Descriptor, error) {
	f.calls++
	return f.classify(text)
}

func (f *fakeClassifier) HealthCheck(context.Context) error { return nil }

func tenseForest() library.Descriptor {
	return library.Descriptor{
		Mood:             "tense",
		Setting:          "forest",
		TimeOfDay:        "night",
		Weather:          "storm",
		ActivityLevel:    "active",
		Atmosphere:       "eerie",
		SceneType:        "action",
		DominantElements: "rain,thunder",
	}
}

func TestExecuteClassifiesEveryPage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Classified", 3)
	ctx := context.Background()

	fake := &fakeClassifier{classify: func(string) (library.Descriptor, error) {
		return tenseForest(), nil
	}}
	handler := classification.NewHandlerWithClassifier(cfg, store, logging.NewNop(), fake)

	if err := handler.Prepare(ctx, book); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, book); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if book.Status != library.StatusClassified {
		t.Fatalf("expected classified status, got %s", book.Status)
	}

	descriptors, err := store.DescriptorsForBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("DescriptorsForBook: %v", err)
	}
	if len(descriptors) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(descriptors))
	}
	if descriptors[1].Mood != "tense" {
		t.Fatalf("unexpected descriptor %+v", descriptors[1])
	}
}

func TestExecuteSkipsAlreadyClassifiedPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Resumable", 3)
	ctx := context.Background()

	pages, err := store.PagesForBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("PagesForBook: %v", err)
	}
	if err := store.SavePageDescriptor(ctx, pages[0].ID, tenseForest(), false); err != nil {
		t.Fatalf("SavePageDescriptor: %v", err)
	}

	fake := &fakeClassifier{classify: func(string) (library.Descriptor, error) {
		return tenseForest(), nil
	}}
	handler := classification.NewHandlerWithClassifier(cfg, store, logging.NewNop(), fake)

	if err := handler.Execute(ctx, book); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 model calls for 2 pending pages, got %d", fake.calls)
	}
}

func TestExecuteDegradesFailedPagesToDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Degraded", 2)
	ctx := context.Background()

	fake := &fakeClassifier{classify: func(text string) (library.Descriptor, error) {
		if strings.Contains(text, "Page 2") {
			return library.Descriptor{}, errors.New("endpoint unavailable after retries")
		}
		return tenseForest(), nil
	}}
	handler := classification.NewHandlerWithClassifier(cfg, store, logging.NewNop(), fake)

	if err := handler.Execute(ctx, book); err != nil {
		t.Fatalf("Execute should degrade, not fail: %v", err)
	}
	if book.Status != library.StatusClassified {
		t.Fatalf("expected classified status, got %s", book.Status)
	}

	descriptors, err := store.DescriptorsForBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("DescriptorsForBook: %v", err)
	}
	if descriptors[2] != library.DefaultDescriptor() {
		t.Fatalf("expected default descriptor for failed page, got %+v", descriptors[2])
	}

	pages, err := store.PagesForBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("PagesForBook: %v", err)
	}
	if !pages[1].Degraded {
		t.Fatal("expected page 2 flagged as degraded")
	}
	if pages[0].Degraded {
		t.Fatal("page 1 should not be flagged")
	}
}

type contextClassifier struct {
	classify func(ctx context.Context, text string) (library.Descriptor, error)
}

func (c *contextClassifier) ClassifyPage(ctx context.Context, text string) (library.Descriptor, error) {
	return c.classify(ctx, text)
}

func (c *contextClassifier) HealthCheck(context.Context) error { return nil }

func TestExecuteStopsWorkersWhenSaveFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Classifier.PageWorkers = 2
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Aborted", 2)
	ctx := context.Background()

	started := make(chan struct{})
	released := make(chan struct{})
	fake := &contextClassifier{classify: func(callCtx context.Context, text string) (library.Descriptor, error) {
		if strings.Contains(text, "Page 2") {
			close(started)
			<-callCtx.Done()
			close(released)
			return library.Descriptor{}, callCtx.Err()
		}
		<-started
		// Deleting the book makes the descriptor save for page 1 fail.
		if _, err := store.Remove(context.Background(), book.ID); err != nil {
			t.Errorf("Remove: %v", err)
		}
		return tenseForest(), nil
	}}
	handler := classification.NewHandlerWithClassifier(cfg, store, logging.NewNop(), fake)

	err := handler.Execute(ctx, book)
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}

	// The in-flight worker must be cancelled, not left calling the model.
	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("worker context was never cancelled after the stage aborted")
	}
}

func TestExecuteTreatsEmptyPageAsDegraded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book, err := store.CreateBook(ctx, "Blanks", "", []library.PageInput{
		{PageNumber: 1, Text: "   "},
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	fake := &fakeClassifier{classify: func(text string) (library.Descriptor, error) {
		if strings.TrimSpace(text) == "" {
			return library.Descriptor{}, classification.ErrEmptyPage
		}
		return tenseForest(), nil
	}}
	handler := classification.NewHandlerWithClassifier(cfg, store, logging.NewNop(), fake)

	if err := handler.Execute(ctx, book); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	descriptors, err := store.DescriptorsForBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("DescriptorsForBook: %v", err)
	}
	if descriptors[1] != library.DefaultDescriptor() {
		t.Fatalf("expected default descriptor for blank page, got %+v", descriptors[1])
	}
}
