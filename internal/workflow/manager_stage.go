package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"readscape/internal/library"
	"readscape/internal/logging"
	"readscape/internal/services"
)

func (m *Manager) processBook(ctx context.Context, lane *laneState, laneLogger *slog.Logger, stg pipelineStage, book *library.Book) error {
	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(
		services.WithLane(
			services.WithStage(
				services.WithBookID(ctx, book.ID), stg.name), lane.name), requestID)
	stageLogger := logging.WithContext(stageCtx, laneLogger)

	book.SetProgress(stg.name, fmt.Sprintf("%s started", stg.name), 0)
	book.ErrorMessage = ""
	book.FailedStage = ""
	if err := m.store.Update(stageCtx, book); err != nil {
		wrapped := fmt.Errorf("persist processing transition: %w", err)
		stageLogger.Error("failed to persist processing transition", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	m.setLastBook(book)

	return m.executeStage(stageCtx, stageLogger, stg, book)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, book *library.Book) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("title", book.Title),
		logging.Int("total_pages", book.TotalPages),
	)

	if err := stg.handler.Prepare(ctx, book); err != nil {
		m.handleStageFailure(ctx, stg.name, book, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, book); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stg, book)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, book, execErr)
		m.setLastError(execErr)
		return execErr
	}

	// Handlers may promote past the default done status (matching moves the
	// book straight to ready_for_review).
	if book.Status == stg.processingStatus || book.Status == "" {
		book.Status = stg.doneStatus
	}
	book.LastHeartbeat = nil
	if err := m.store.Update(ctx, book); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(book.Status)),
		logging.String("progress_message", book.ProgressMessage),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastBook(book)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, stg pipelineStage, book *library.Book) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, book.ID)

	execErr := stg.handler.Execute(ctx, book)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, book *library.Book, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	details := services.Details(stageErr)
	message := details.Message
	if message == "" {
		message = fmt.Sprintf("%s failed without error detail", stageName)
	}
	book.SetFailed(stageName, message)

	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String(logging.FieldEventType, "stage_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	logger.Error("stage failed", logging.Args(attrs...)...)

	if err := m.store.Update(ctx, book); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastBook(book)
}
