package library

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a book moving through the pipeline.
type Status string

const (
	StatusExtracted      Status = "extracted"
	StatusClassifying    Status = "classifying"
	StatusClassified     Status = "classified"
	StatusSegmenting     Status = "segmenting"
	StatusSegmented      Status = "segmented"
	StatusMatching       Status = "matching"
	StatusMatched        Status = "matched"
	StatusReadyForReview Status = "ready_for_review"
	StatusPublished      Status = "published"
	StatusFailed         Status = "failed"
)

var allStatuses = []Status{
	StatusExtracted,
	StatusClassifying,
	StatusClassified,
	StatusSegmenting,
	StatusSegmented,
	StatusMatching,
	StatusMatched,
	StatusReadyForReview,
	StatusPublished,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusClassifying: {},
	StatusSegmenting:  {},
	StatusMatching:    {},
}

// stageStartForProcessing maps an in-flight status back to the status the
// stage started from, used when reclaiming stale processing books.
var stageStartForProcessing = map[Status]Status{
	StatusClassifying: StatusExtracted,
	StatusSegmenting:  StatusClassified,
	StatusMatching:    StatusSegmented,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// Book is the pipeline run record for one book: its furthest stage, progress
// detail, and failure state.
type Book struct {
	ID              int64
	Title           string
	Author          string
	Status          Status
	TotalPages      int
	ErrorMessage    string
	FailedStage     string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsProcessing returns true when the book is inside a stage execution.
func (b Book) IsProcessing() bool {
	_, ok := processingStatuses[b.Status]
	return ok
}

// SetProgress updates the progress fields together.
func (b *Book) SetProgress(stage, message string, percent float64) {
	b.ProgressStage = stage
	b.ProgressMessage = message
	b.ProgressPercent = percent
}

// SetFailed marks the book as failed at the named stage.
func (b *Book) SetFailed(stage, message string) {
	b.Status = StatusFailed
	b.FailedStage = stage
	b.ErrorMessage = message
	b.ProgressStage = "Failed"
	b.ProgressMessage = message
	b.ProgressPercent = 0
	b.LastHeartbeat = nil
}

// Page is one ordered unit of extracted book text. Text is immutable once
// created; the scene reference is set exactly once during aggregation.
type Page struct {
	ID         int64
	BookID     int64
	PageNumber int
	Text       string
	SceneID    *int64
	Degraded   bool
	CreatedAt  time.Time
}

// Descriptor is the eight-attribute categorical classification of a page or
// scene. Values are lowercase; DominantElements is a comma-separated tag set.
type Descriptor struct {
	Mood             string
	Setting          string
	TimeOfDay        string
	Weather          string
	ActivityLevel    string
	Atmosphere       string
	SceneType        string
	DominantElements string
}

// AttributeKeys lists the descriptor keys in their canonical order.
var AttributeKeys = []string{
	"mood",
	"setting",
	"time_of_day",
	"weather",
	"activity_level",
	"atmosphere",
	"scene_type",
	"dominant_elements",
}

// DefaultDescriptor is the degradation fallback assigned when classification
// cannot produce a usable result after retries.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Mood:             "neutral",
		Setting:          "unknown",
		TimeOfDay:        "unknown",
		Weather:          "unknown",
		ActivityLevel:    "moderate",
		Atmosphere:       "neutral",
		SceneType:        "description",
		DominantElements: "silence",
	}
}

// Get returns the value for a canonical attribute key.
func (d Descriptor) Get(key string) string {
	switch key {
	case "mood":
		return d.Mood
	case "setting":
		return d.Setting
	case "time_of_day":
		return d.TimeOfDay
	case "weather":
		return d.Weather
	case "activity_level":
		return d.ActivityLevel
	case "atmosphere":
		return d.Atmosphere
	case "scene_type":
		return d.SceneType
	case "dominant_elements":
		return d.DominantElements
	default:
		return ""
	}
}

// Set assigns the value for a canonical attribute key.
func (d *Descriptor) Set(key, value string) {
	switch key {
	case "mood":
		d.Mood = value
	case "setting":
		d.Setting = value
	case "time_of_day":
		d.TimeOfDay = value
	case "weather":
		d.Weather = value
	case "activity_level":
		d.ActivityLevel = value
	case "atmosphere":
		d.Atmosphere = value
	case "scene_type":
		d.SceneType = value
	case "dominant_elements":
		d.DominantElements = value
	}
}

// Elements parses DominantElements into a normalized tag set.
func (d Descriptor) Elements() []string {
	if strings.TrimSpace(d.DominantElements) == "" {
		return nil
	}
	parts := strings.Split(d.DominantElements, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// Scene is a contiguous page range within one book plus its aggregated
// descriptor. Scenes for a book are contiguous, non-overlapping, and ordered.
type Scene struct {
	ID         int64
	BookID     int64
	StartPage  int
	EndPage    int
	Descriptor Descriptor
	CreatedAt  time.Time
}

// PageCount returns the number of pages covered by the scene.
func (s Scene) PageCount() int {
	return s.EndPage - s.StartPage + 1
}

// Contains reports whether the scene covers the given page number.
func (s Scene) Contains(pageNumber int) bool {
	return pageNumber >= s.StartPage && pageNumber <= s.EndPage
}

// Assignment source values.
const (
	SourceAutomated     = "automated"
	SourceAdminOverride = "admin_override"
)

// Assignment links a scene to a soundscape asset. Rows are append-only: an
// override creates a new row and the active assignment is the most recent.
// SoundscapeID is nil when no match could be produced.
type Assignment struct {
	ID           int64
	SceneID      int64
	SoundscapeID *int64
	Confidence   float64
	Source       string
	Approved     bool
	NeedsReview  bool
	CreatedAt    time.Time
}

// Soundscape is one curated catalog entry: an audio asset addressable by URL
// with the curation tags used for matching. Position fixes the canonical
// catalog order used for deterministic tie-breaking.
type Soundscape struct {
	ID        int64
	Category  string
	Name      string
	URL       string
	Mood      string
	Setting   string
	Weather   string
	TimeOfDay string
	// Intensity is a 0-10 curation scale; negative means untagged.
	Intensity int
	Position  int
	CreatedAt time.Time
}

// HealthSummary describes aggregated book counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Extracted  int
	Processing int
	Review     int
	Published  int
	Failed     int
}
