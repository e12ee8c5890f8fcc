package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"readscape/internal/library"
	"readscape/internal/testsupport"
)

func TestCreateBookPersistsPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book, err := store.CreateBook(ctx, "The Lighthouse", "V. Woolf", []library.PageInput{
		{PageNumber: 1, Text: "The sea was calm."},
		{PageNumber: 2, Text: "A storm approached."},
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if book.Status != library.StatusExtracted {
		t.Fatalf("expected extracted status, got %s", book.Status)
	}
	if book.TotalPages != 2 {
		t.Fatalf("expected 2 pages, got %d", book.TotalPages)
	}

	pages, err := store.PagesForBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("PagesForBook: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].PageNumber != 1 || pages[1].PageNumber != 2 {
		t.Fatalf("pages out of order: %+v", pages)
	}
}

func TestCreateBookAcceptsGappedPageNumbers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Extractors drop front matter and short pages, so numbering like
	// 1,2,8,9 is the normal input shape.
	book, err := store.CreateBook(ctx, "Gaps", "", []library.PageInput{
		{PageNumber: 1, Text: "one"},
		{PageNumber: 2, Text: "two"},
		{PageNumber: 8, Text: "eight"},
		{PageNumber: 9, Text: "nine"},
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if book.TotalPages != 4 {
		t.Fatalf("expected 4 pages, got %d", book.TotalPages)
	}

	pages, err := store.PagesForBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("PagesForBook: %v", err)
	}
	got := make([]int, 0, len(pages))
	for _, page := range pages {
		got = append(got, page.PageNumber)
	}
	want := []int{1, 2, 8, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected page numbers %v, got %v", want, got)
		}
	}
}

func TestCreateBookRejectsNonIncreasingPageNumbers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cases := []struct {
		name  string
		pages []library.PageInput
	}{
		{"duplicate", []library.PageInput{{PageNumber: 1, Text: "a"}, {PageNumber: 1, Text: "b"}}},
		{"decreasing", []library.PageInput{{PageNumber: 3, Text: "a"}, {PageNumber: 2, Text: "b"}}},
		{"zero", []library.PageInput{{PageNumber: 0, Text: "a"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateBook(ctx, "Bad", "", tc.pages); err == nil {
				t.Fatal("expected error for invalid page numbering")
			}
		})
	}
}

func TestClaimNextIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "Claimable", 1)

	claimed, err := store.ClaimNext(ctx, library.StatusExtracted, library.StatusClassifying)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.ID != book.ID {
		t.Fatalf("expected to claim book %d, got %+v", book.ID, claimed)
	}
	if claimed.Status != library.StatusClassifying {
		t.Fatalf("expected classifying status, got %s", claimed.Status)
	}
	if claimed.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to be set on claim")
	}

	second, err := store.ClaimNext(ctx, library.StatusExtracted, library.StatusClassifying)
	if err != nil {
		t.Fatalf("second ClaimNext: %v", err)
	}
	if second != nil {
		t.Fatalf("expected no further claimable book, got %+v", second)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "Stale", 1)
	if _, err := store.ClaimNext(ctx, library.StatusExtracted, library.StatusClassifying); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	// A cutoff in the future makes the fresh heartbeat stale.
	reclaimed, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed book, got %d", reclaimed)
	}

	reloaded, err := store.GetByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != library.StatusExtracted {
		t.Fatalf("expected book back at extracted, got %s", reloaded.Status)
	}
	if reloaded.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared on reclaim")
	}
}

func TestRetryFailedTargetsFailedStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "Broken", 1)
	book.SetFailed("segment", "descriptor missing")
	if err := store.Update(ctx, book); err != nil {
		t.Fatalf("Update: %v", err)
	}

	retried, err := store.RetryFailed(ctx, book.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried book, got %d", retried)
	}

	reloaded, err := store.GetByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != library.StatusClassified {
		t.Fatalf("expected retry to resume before segmentation, got %s", reloaded.Status)
	}
	if reloaded.ErrorMessage != "" {
		t.Fatalf("expected error cleared, got %q", reloaded.ErrorMessage)
	}
}

func TestReplaceScenesLinksPagesAndDropsAssignments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "Scenic", 4)

	scenes, err := store.ReplaceScenes(ctx, book.ID, []library.Scene{
		{StartPage: 1, EndPage: 2, Descriptor: library.DefaultDescriptor()},
		{StartPage: 3, EndPage: 4, Descriptor: library.DefaultDescriptor()},
	})
	if err != nil {
		t.Fatalf("ReplaceScenes: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}

	sound := testsupport.SeedSoundscape(t, store, "rain", "gentle-rain", library.Soundscape{})
	assignment := &library.Assignment{
		SceneID:      scenes[0].ID,
		SoundscapeID: &sound.ID,
		Confidence:   0.9,
		Source:       library.SourceAutomated,
	}
	if err := store.InsertAssignment(ctx, assignment); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	pages, err := store.PagesForBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("PagesForBook: %v", err)
	}
	for _, page := range pages {
		if page.SceneID == nil {
			t.Fatalf("page %d missing scene reference", page.PageNumber)
		}
	}

	// Re-segmenting replaces scenes and invalidates old assignments.
	newScenes, err := store.ReplaceScenes(ctx, book.ID, []library.Scene{
		{StartPage: 1, EndPage: 4, Descriptor: library.DefaultDescriptor()},
	})
	if err != nil {
		t.Fatalf("second ReplaceScenes: %v", err)
	}
	current, err := store.CurrentAssignment(ctx, newScenes[0].ID)
	if err != nil {
		t.Fatalf("CurrentAssignment: %v", err)
	}
	if current != nil {
		t.Fatalf("expected no assignment on fresh scene, got %+v", current)
	}
}

func TestAssignmentsAreAppendOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "History", 1)
	scenes, err := store.ReplaceScenes(ctx, book.ID, []library.Scene{
		{StartPage: 1, EndPage: 1, Descriptor: library.DefaultDescriptor()},
	})
	if err != nil {
		t.Fatalf("ReplaceScenes: %v", err)
	}
	sceneID := scenes[0].ID

	first := testsupport.SeedSoundscape(t, store, "forest", "night-forest", library.Soundscape{})
	second := testsupport.SeedSoundscape(t, store, "forest", "day-forest", library.Soundscape{})

	for _, step := range []struct {
		soundscapeID int64
		source       string
	}{
		{first.ID, library.SourceAutomated},
		{second.ID, library.SourceAdminOverride},
	} {
		id := step.soundscapeID
		if err := store.InsertAssignment(ctx, &library.Assignment{
			SceneID:      sceneID,
			SoundscapeID: &id,
			Confidence:   1.0,
			Source:       step.source,
			Approved:     step.source == library.SourceAdminOverride,
		}); err != nil {
			t.Fatalf("InsertAssignment: %v", err)
		}
	}

	history, err := store.AssignmentHistory(ctx, sceneID)
	if err != nil {
		t.Fatalf("AssignmentHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected full history preserved, got %d rows", len(history))
	}

	current, err := store.CurrentAssignment(ctx, sceneID)
	if err != nil {
		t.Fatalf("CurrentAssignment: %v", err)
	}
	if current.Source != library.SourceAdminOverride || *current.SoundscapeID != second.ID {
		t.Fatalf("expected override to be active, got %+v", current)
	}
}

func TestUnresolvedSceneCountGatesPublish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "Gate", 2)
	scenes, err := store.ReplaceScenes(ctx, book.ID, []library.Scene{
		{StartPage: 1, EndPage: 1, Descriptor: library.DefaultDescriptor()},
		{StartPage: 2, EndPage: 2, Descriptor: library.DefaultDescriptor()},
	})
	if err != nil {
		t.Fatalf("ReplaceScenes: %v", err)
	}

	count, err := store.UnresolvedSceneCount(ctx, book.ID, 0.7)
	if err != nil {
		t.Fatalf("UnresolvedSceneCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unresolved scenes, got %d", count)
	}

	sound := testsupport.SeedSoundscape(t, store, "city", "street-noise", library.Soundscape{})
	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID:      scenes[0].ID,
		SoundscapeID: &sound.ID,
		Confidence:   0.95,
		Source:       library.SourceAutomated,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}
	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID:      scenes[1].ID,
		SoundscapeID: &sound.ID,
		Confidence:   0.4,
		Source:       library.SourceAutomated,
		NeedsReview:  true,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	count, err = store.UnresolvedSceneCount(ctx, book.ID, 0.7)
	if err != nil {
		t.Fatalf("UnresolvedSceneCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unresolved scene, got %d", count)
	}

	// An approved override resolves the low-confidence scene.
	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID:      scenes[1].ID,
		SoundscapeID: &sound.ID,
		Confidence:   1.0,
		Source:       library.SourceAdminOverride,
		Approved:     true,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}
	count, err = store.UnresolvedSceneCount(ctx, book.ID, 0.7)
	if err != nil {
		t.Fatalf("UnresolvedSceneCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unresolved scenes, got %d", count)
	}
}

func TestDeleteSoundscapeGuardsPublishedReferences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "Published", 1)
	scenes, err := store.ReplaceScenes(ctx, book.ID, []library.Scene{
		{StartPage: 1, EndPage: 1, Descriptor: library.DefaultDescriptor()},
	})
	if err != nil {
		t.Fatalf("ReplaceScenes: %v", err)
	}

	sound := testsupport.SeedSoundscape(t, store, "ocean", "waves", library.Soundscape{})
	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID:      scenes[0].ID,
		SoundscapeID: &sound.ID,
		Confidence:   0.9,
		Source:       library.SourceAutomated,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	book.Status = library.StatusPublished
	if err := store.Update(ctx, book); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := store.DeleteSoundscape(ctx, sound.ID); !errors.Is(err, library.ErrSoundscapeInUse) {
		t.Fatalf("expected ErrSoundscapeInUse, got %v", err)
	}

	// Removing the book releases the reference.
	if _, err := store.Remove(ctx, book.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	deleted, err := store.DeleteSoundscape(ctx, sound.ID)
	if err != nil {
		t.Fatalf("DeleteSoundscape: %v", err)
	}
	if !deleted {
		t.Fatal("expected soundscape to be deleted")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewBook(t, store, "One", 1)
	failed := testsupport.NewBook(t, store, "Two", 1)
	failed.SetFailed("classify", "backend offline")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	books, err := store.List(ctx, library.StatusFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Two" {
		t.Fatalf("expected only the failed book, got %+v", books)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 books, got %d", len(all))
	}
}
