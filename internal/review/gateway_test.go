package review_test

import (
	"context"
	"errors"
	"testing"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/logging"
	"readscape/internal/review"
	"readscape/internal/services"
	"readscape/internal/testsupport"
)

func reviewableBook(t *testing.T, store *library.Store, sceneCount int) (*library.Book, []library.Scene) {
	t.Helper()
	ctx := context.Background()
	book := testsupport.NewBook(t, store, "Reviewable", sceneCount)
	scenes := make([]library.Scene, sceneCount)
	for i := range scenes {
		scenes[i] = library.Scene{StartPage: i + 1, EndPage: i + 1, Descriptor: library.DefaultDescriptor()}
	}
	saved, err := store.ReplaceScenes(ctx, book.ID, scenes)
	if err != nil {
		t.Fatalf("ReplaceScenes: %v", err)
	}
	book.Status = library.StatusReadyForReview
	if err := store.Update(ctx, book); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return book, saved
}

func newGateway(t *testing.T) (*review.Gateway, *library.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return review.NewGateway(cfg, store, logging.NewNop()), store, cfg
}

func TestOverrideAppendsApprovedAssignment(t *testing.T) {
	gateway, store, _ := newGateway(t)
	ctx := context.Background()

	sound := testsupport.SeedSoundscape(t, store, "rain", "soft-rain", library.Soundscape{Intensity: 3})
	_, scenes := reviewableBook(t, store, 1)

	// Automated low-confidence row first.
	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID: scenes[0].ID, SoundscapeID: &sound.ID,
		Confidence: 0.4, Source: library.SourceAutomated, NeedsReview: true,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	assignment, err := gateway.Override(ctx, scenes[0].ID, sound.ID)
	if err != nil {
		t.Fatalf("Override: %v", err)
	}
	if !assignment.Approved || assignment.Confidence != 1.0 || assignment.Source != library.SourceAdminOverride {
		t.Fatalf("unexpected override row: %+v", assignment)
	}

	history, err := store.AssignmentHistory(ctx, scenes[0].ID)
	if err != nil {
		t.Fatalf("AssignmentHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("override must append, not replace: %d rows", len(history))
	}

	current, err := store.CurrentAssignment(ctx, scenes[0].ID)
	if err != nil {
		t.Fatalf("CurrentAssignment: %v", err)
	}
	if current.Source != library.SourceAdminOverride {
		t.Fatalf("override should be active: %+v", current)
	}
}

func TestOverrideRejectsUnknownSoundscape(t *testing.T) {
	gateway, store, _ := newGateway(t)
	_, scenes := reviewableBook(t, store, 1)

	_, err := gateway.Override(context.Background(), scenes[0].ID, 9999)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOverrideRejectsProcessingBook(t *testing.T) {
	gateway, store, _ := newGateway(t)
	ctx := context.Background()

	sound := testsupport.SeedSoundscape(t, store, "rain", "soft-rain", library.Soundscape{})
	book, scenes := reviewableBook(t, store, 1)
	book.Status = library.StatusMatching
	if err := store.Update(ctx, book); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := gateway.Override(ctx, scenes[0].ID, sound.ID)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for processing book, got %v", err)
	}
}

func TestApproveRequiresExistingMatch(t *testing.T) {
	gateway, store, _ := newGateway(t)
	ctx := context.Background()

	sound := testsupport.SeedSoundscape(t, store, "rain", "soft-rain", library.Soundscape{})
	_, scenes := reviewableBook(t, store, 2)

	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID: scenes[0].ID, SoundscapeID: &sound.ID,
		Confidence: 0.55, Source: library.SourceAutomated, NeedsReview: true,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	assignment, err := gateway.Approve(ctx, scenes[0].ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if !assignment.Approved || assignment.Confidence != 0.55 {
		t.Fatalf("approve should keep the matcher confidence: %+v", assignment)
	}

	// No assignment at all: nothing to approve.
	if _, err := gateway.Approve(ctx, scenes[1].ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClearReturnsSceneToUnresolved(t *testing.T) {
	gateway, store, cfg := newGateway(t)
	ctx := context.Background()

	sound := testsupport.SeedSoundscape(t, store, "rain", "soft-rain", library.Soundscape{})
	book, scenes := reviewableBook(t, store, 1)

	if _, err := gateway.Override(ctx, scenes[0].ID, sound.ID); err != nil {
		t.Fatalf("Override: %v", err)
	}
	count, err := store.UnresolvedSceneCount(ctx, book.ID, cfg.Matching.ConfidenceThreshold)
	if err != nil {
		t.Fatalf("UnresolvedSceneCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("override should resolve the scene, got %d unresolved", count)
	}

	if err := gateway.Clear(ctx, scenes[0].ID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, err = store.UnresolvedSceneCount(ctx, book.ID, cfg.Matching.ConfidenceThreshold)
	if err != nil {
		t.Fatalf("UnresolvedSceneCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("clear should reopen the scene, got %d unresolved", count)
	}
}

func TestPublishGate(t *testing.T) {
	gateway, store, _ := newGateway(t)
	ctx := context.Background()

	sound := testsupport.SeedSoundscape(t, store, "rain", "soft-rain", library.Soundscape{})
	book, scenes := reviewableBook(t, store, 2)

	// Scene 0 confidently matched, scene 1 unassigned: publish must refuse.
	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID: scenes[0].ID, SoundscapeID: &sound.ID,
		Confidence: 0.9, Source: library.SourceAutomated,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}
	if _, err := gateway.Publish(ctx, book.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected publish to refuse unresolved scenes, got %v", err)
	}

	if _, err := gateway.Override(ctx, scenes[1].ID, sound.ID); err != nil {
		t.Fatalf("Override: %v", err)
	}
	published, err := gateway.Publish(ctx, book.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Status != library.StatusPublished {
		t.Fatalf("expected published status, got %s", published.Status)
	}
}

func TestPublishRequiresReadyForReview(t *testing.T) {
	gateway, store, _ := newGateway(t)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "Unsegmented", 1)
	if _, err := gateway.Publish(ctx, book.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for extracted book, got %v", err)
	}
	if _, err := gateway.Publish(ctx, 9999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing book, got %v", err)
	}
}

func TestQueueFlagsUnresolvedScenes(t *testing.T) {
	gateway, store, _ := newGateway(t)
	ctx := context.Background()

	sound := testsupport.SeedSoundscape(t, store, "rain", "soft-rain", library.Soundscape{})
	book, scenes := reviewableBook(t, store, 3)

	// Scene 0 confident, scene 1 flagged, scene 2 unassigned.
	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID: scenes[0].ID, SoundscapeID: &sound.ID,
		Confidence: 0.9, Source: library.SourceAutomated,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}
	if err := store.InsertAssignment(ctx, &library.Assignment{
		SceneID: scenes[1].ID, SoundscapeID: &sound.ID,
		Confidence: 0.4, Source: library.SourceAutomated, NeedsReview: true,
	}); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	items, err := gateway.Queue(ctx, book.ID)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Unresolved {
		t.Fatalf("confident scene should be resolved: %+v", items[0])
	}
	if !items[1].Unresolved || items[1].Soundscape == nil {
		t.Fatalf("flagged scene should be unresolved with its candidate attached: %+v", items[1])
	}
	if !items[2].Unresolved || items[2].Assignment != nil {
		t.Fatalf("unassigned scene should be unresolved: %+v", items[2])
	}
}

func TestResolvePageReturnsAudioURL(t *testing.T) {
	gateway, store, _ := newGateway(t)
	ctx := context.Background()

	sound := testsupport.SeedSoundscape(t, store, "rain", "soft-rain", library.Soundscape{})
	book, scenes := reviewableBook(t, store, 2)
	if _, err := gateway.Override(ctx, scenes[1].ID, sound.ID); err != nil {
		t.Fatalf("Override: %v", err)
	}

	resolution, err := gateway.ResolvePage(ctx, book.ID, 2)
	if err != nil {
		t.Fatalf("ResolvePage: %v", err)
	}
	if resolution.Scene.ID != scenes[1].ID {
		t.Fatalf("wrong owning scene: %+v", resolution.Scene)
	}
	if resolution.AudioURL != sound.URL {
		t.Fatalf("expected audio URL %q, got %q", sound.URL, resolution.AudioURL)
	}

	// Page in an unassigned scene still resolves, just without audio.
	resolution, err = gateway.ResolvePage(ctx, book.ID, 1)
	if err != nil {
		t.Fatalf("ResolvePage: %v", err)
	}
	if resolution.AudioURL != "" || resolution.Assignment != nil {
		t.Fatalf("expected silent resolution: %+v", resolution)
	}

	if _, err := gateway.ResolvePage(ctx, book.ID, 99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for uncovered page, got %v", err)
	}
}
