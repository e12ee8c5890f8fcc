package workflow

import (
	"context"
	"log/slog"
	"sync"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/logging"
	"readscape/internal/stage"
)

// Manager drives books through the pipeline using the registered stage
// handlers. Stages are grouped into lanes with independent worker pools:
// classification is LLM-bound and runs in its own lane so slow model calls
// never starve the cheap segmentation and matching work.
type Manager struct {
	cfg    *config.Config
	store  *library.Store
	logger *slog.Logger

	heartbeat *HeartbeatMonitor

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastBook *library.Book
}

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Classifier stage.Handler
	Segmenter  stage.Handler
	Matcher    stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      library.Status
	processingStatus library.Status
	doneStatus       library.Status
}

type laneKind string

const (
	laneClassify laneKind = "classify"
	laneLight    laneKind = "light"
)

type laneState struct {
	kind         laneKind
	name         string
	workers      int
	stages       []pipelineStage
	logger       *slog.Logger
	runReclaimer bool
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *library.Store, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow-manager"),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			cfg.Workflow.HeartbeatPeriod(),
			cfg.Workflow.HeartbeatExpiry(),
		),
		lanes: make(map[laneKind]*laneState),
	}
}

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	classify := &laneState{kind: laneClassify, name: "classify", workers: m.cfg.Workflow.ClassifyWorkers}
	light := &laneState{kind: laneLight, name: "light", workers: m.cfg.Workflow.LightWorkers}

	if set.Classifier != nil {
		classify.stages = append(classify.stages, pipelineStage{
			name:             "classify",
			handler:          set.Classifier,
			startStatus:      library.StatusExtracted,
			processingStatus: library.StatusClassifying,
			doneStatus:       library.StatusClassified,
		})
	}
	if set.Segmenter != nil {
		light.stages = append(light.stages, pipelineStage{
			name:             "segment",
			handler:          set.Segmenter,
			startStatus:      library.StatusClassified,
			processingStatus: library.StatusSegmenting,
			doneStatus:       library.StatusSegmented,
		})
	}
	if set.Matcher != nil {
		light.stages = append(light.stages, pipelineStage{
			name:             "match",
			handler:          set.Matcher,
			startStatus:      library.StatusSegmented,
			processingStatus: library.StatusMatching,
			doneStatus:       library.StatusMatched,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)
	for _, lane := range []*laneState{classify, light} {
		if len(lane.stages) == 0 {
			continue
		}
		if lane.workers < 1 {
			lane.workers = 1
		}
		lane.runReclaimer = true
		lanes[lane.kind] = lane
		order = append(order, lane.kind)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}

// LastError returns the most recent lane failure for status reporting.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastBook returns the most recently processed book record.
func (m *Manager) LastBook() *library.Book {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBook
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastBook(book *library.Book) {
	m.mu.Lock()
	m.lastBook = book
	m.mu.Unlock()
}
