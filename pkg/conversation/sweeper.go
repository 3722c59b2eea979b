package conversation

import (
	"ai-consultation-be/pkg/consultation"
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper runs Manager.Sweep on a fixed interval.
type Sweeper struct {
	scheduler gocron.Scheduler
	manager   *Manager
	logger    consultation.Logger
}

func NewSweeper(manager *Manager, interval time.Duration, logger consultation.Logger) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}
	if logger == nil {
		logger = consultation.NopLogger{}
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Sweeper{scheduler: scheduler, manager: manager, logger: logger}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			s.run(ctx)
		}),
		gocron.WithName("session-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return s, nil
}

func (s *Sweeper) run(ctx context.Context) {
	evicted, err := s.manager.Sweep(ctx)
	if err != nil {
		s.logger.Error(logModule, "Session sweep failed", map[string]interface{}{"error": err.Error(), "evicted": len(evicted)})
		return
	}
	s.logger.Debug(logModule, "Session sweep finished", map[string]interface{}{"evicted": len(evicted)})
}

func (s *Sweeper) Start() {
	s.scheduler.Start()
	s.logger.Info(logModule, "Session sweeper started", nil)
}

func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
