package workflow

import (
	"context"

	"readscape/internal/stage"
)

// Health runs every registered handler's health check plus the store's own,
// in lane order.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	m.mu.RLock()
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			lanes = append(lanes, lane)
		}
	}
	m.mu.RUnlock()

	var reports []stage.Health
	if _, err := m.store.CheckHealth(ctx); err != nil {
		reports = append(reports, stage.Unhealthy("library", err.Error()))
	} else {
		reports = append(reports, stage.Healthy("library"))
	}
	for _, lane := range lanes {
		for _, stg := range lane.stages {
			reports = append(reports, stg.handler.HealthCheck(ctx))
		}
	}
	return reports
}
