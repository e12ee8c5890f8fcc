package review

import (
	"context"
	"fmt"

	"readscape/internal/library"
	"readscape/internal/services"
)

// Item pairs a scene with its active assignment for the review listing.
// Unresolved reports whether this scene would block publish under the
// configured confidence floor.
type Item struct {
	Scene      *library.Scene
	Assignment *library.Assignment
	Soundscape *library.Soundscape
	Unresolved bool
}

// Queue lists a book's scenes in page order with their active assignments.
func (g *Gateway) Queue(ctx context.Context, bookID int64) ([]Item, error) {
	book, err := g.store.GetByID(ctx, bookID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "queue", "load book", err)
	}
	if book == nil {
		return nil, services.Wrap(services.ErrNotFound, "review", "queue",
			fmt.Sprintf("book %d not found", bookID), nil)
	}

	scenes, err := g.store.ScenesForBook(ctx, bookID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "queue", "load scenes", err)
	}
	assignments, err := g.store.CurrentAssignmentsForBook(ctx, bookID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "queue", "load assignments", err)
	}

	floor := g.cfg.Matching.ConfidenceThreshold
	items := make([]Item, 0, len(scenes))
	for _, scene := range scenes {
		item := Item{Scene: scene, Assignment: assignments[scene.ID]}
		item.Unresolved = unresolved(item.Assignment, floor)
		if item.Assignment != nil && item.Assignment.SoundscapeID != nil {
			entry, err := g.store.SoundscapeByID(ctx, *item.Assignment.SoundscapeID)
			if err != nil {
				return nil, services.Wrap(services.ErrPersistence, "review", "queue", "load soundscape", err)
			}
			item.Soundscape = entry
		}
		items = append(items, item)
	}
	return items, nil
}

// Resolution is the reader-facing answer for one page: the owning scene and
// the audio to play, when one is assigned.
type Resolution struct {
	Book       *library.Book
	Scene      *library.Scene
	Assignment *library.Assignment
	AudioURL   string
}

// ResolvePage maps a page number to its scene and active soundscape URL.
func (g *Gateway) ResolvePage(ctx context.Context, bookID int64, pageNumber int) (*Resolution, error) {
	book, err := g.store.GetByID(ctx, bookID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "resolve", "load book", err)
	}
	if book == nil {
		return nil, services.Wrap(services.ErrNotFound, "review", "resolve",
			fmt.Sprintf("book %d not found", bookID), nil)
	}

	scene, err := g.store.SceneForPage(ctx, bookID, pageNumber)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "resolve", "load scene", err)
	}
	if scene == nil {
		return nil, services.Wrap(services.ErrNotFound, "review", "resolve",
			fmt.Sprintf("no scene covers page %d of book %d", pageNumber, bookID), nil)
	}

	resolution := &Resolution{Book: book, Scene: scene}
	assignment, err := g.store.CurrentAssignment(ctx, scene.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "resolve", "load assignment", err)
	}
	resolution.Assignment = assignment
	if assignment != nil && assignment.SoundscapeID != nil {
		entry, err := g.store.SoundscapeByID(ctx, *assignment.SoundscapeID)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "review", "resolve", "load soundscape", err)
		}
		if entry != nil {
			resolution.AudioURL = entry.URL
		}
	}
	return resolution, nil
}

func unresolved(assignment *library.Assignment, floor float64) bool {
	if assignment == nil || assignment.SoundscapeID == nil {
		return true
	}
	if assignment.Approved {
		return false
	}
	return assignment.NeedsReview || assignment.Confidence < floor
}
