package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"readscape/internal/library"
	"readscape/internal/logging"
)

// Start begins background processing. Stuck processing states from a previous
// run are reset before any worker claims a book.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || len(lane.stages) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	total := 0
	for _, lane := range lanes {
		lane.logger = m.logger.With(logging.String(logging.FieldLane, lane.name))
		total += lane.workers
	}
	m.wg.Add(total)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("reset stuck processing failed", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reset stuck books from previous run", logging.Int64("count", reset))
	}

	for _, lane := range lanes {
		for worker := 0; worker < lane.workers; worker++ {
			go m.runWorker(runCtx, lane, worker)
		}
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, lane *laneState, worker int) {
	defer m.wg.Done()
	logger := lane.logger.With(logging.Int("worker", worker))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Only the first worker of each lane sweeps for stale claims; one
		// sweeper per lane is enough and avoids redundant writes.
		if lane.runReclaimer && worker == 0 {
			if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
				logger.Warn("reclaim stale processing failed; stuck books may remain",
					logging.Error(err))
			}
		}

		book, stg, err := m.claimNext(ctx, lane)
		if err != nil {
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if book == nil {
			m.waitForBookOrShutdown(ctx)
			continue
		}

		if err := m.processBook(ctx, lane, logger, stg, book); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// claimNext tries each of the lane's stages in pipeline order. The claim is a
// compare-and-swap on the book status, so two workers never win the same book.
func (m *Manager) claimNext(ctx context.Context, lane *laneState) (*library.Book, pipelineStage, error) {
	for _, stg := range lane.stages {
		book, err := m.store.ClaimNext(ctx, stg.startStatus, stg.processingStatus)
		if err != nil {
			return nil, pipelineStage{}, err
		}
		if book != nil {
			return book, stg, nil
		}
	}
	return nil, pipelineStage{}, nil
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next book", logging.Error(err))
	select {
	case <-ctx.Done():
	case <-time.After(m.cfg.Workflow.ErrorRetryDelay()):
	}
}

func (m *Manager) waitForBookOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.cfg.Workflow.PollInterval()):
	}
}
