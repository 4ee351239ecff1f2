package lifecycle

import (
	"context"
	"time"

	"vehicle-auction/utils"
)

// Sweeper runs CloseEnded on a fixed interval
type Sweeper struct {
	service  *LifecycleService
	interval time.Duration
}

// NewSweeper creates a sweeper for the service
func NewSweeper(service *LifecycleService, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	utils.Info("Sweeper started", map[string]any{"interval": s.interval.String()})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			utils.Info("Sweeper stopped", nil)
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.service.CloseEnded(ctx); err != nil && ctx.Err() == nil {
		utils.Warn("Sweep failed", map[string]any{"error": err.Error()})
	}
}
