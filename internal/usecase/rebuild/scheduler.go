package rebuild

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs RebuildAll on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger *zap.Logger
}

// NewScheduler parses a standard 5-field cron expression (or a descriptor
// such as "@every 1h") and prepares a scheduler for svc.
func NewScheduler(spec string, svc *Service, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{cron: cron.New(), svc: svc, logger: logger}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("parse rebuild schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running scheduled rebuilds in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running rebuild or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run() {
	start := time.Now()
	report := s.svc.RebuildAll(context.Background())
	if err := report.Err(); err != nil {
		s.logger.Error("scheduled rebuild finished with failures",
			zap.Strings("failed", report.Failed()),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("scheduled rebuild completed",
		zap.Strings("entity_types", report.Succeeded()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
