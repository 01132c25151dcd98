// Package service runs background maintenance over the memory engine: a
// ticker-driven sweep that forgets records whose temporal confidence has
// decayed past the configured threshold.
package service

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// sweeper is the subset of *engine.Engine the maintenance service depends
// on, kept narrow so it can be faked in tests without a full engine.
type sweeper interface {
	Sweep(ctx context.Context, batchSize int) (int, error)
}

// MaintenanceService periodically sweeps the engine for records eligible to
// be forgotten, grounded on the teacher's EvictionService ticker/worker
// shape.
type MaintenanceService struct {
	engine    sweeper
	interval  time.Duration
	batchSize int
}

// NewMaintenanceService constructs a maintenance service. interval <= 0
// disables the sweep entirely (Start returns immediately).
func NewMaintenanceService(engine sweeper, interval time.Duration, batchSize int) *MaintenanceService {
	return &MaintenanceService{engine: engine, interval: interval, batchSize: batchSize}
}

// Start begins the periodic sweep loop. Returns when ctx is cancelled, or
// immediately if the service was configured with a non-positive interval.
func (m *MaintenanceService) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runSweep(ctx)
		}
	}
}

func (m *MaintenanceService) runSweep(ctx context.Context) {
	forgotten, err := m.engine.Sweep(ctx, m.batchSize)
	if err != nil {
		log.Error("maintenance sweep failed", "err", err)
		return
	}
	if forgotten > 0 {
		log.Info("maintenance sweep completed", "forgotten", forgotten)
	}
}
