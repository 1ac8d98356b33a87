package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler drives the periodic scheduled sweep. The interval is minutes;
// a tick that is still running when the next one fires is skipped rather
// than stacked.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger zerolog.Logger
}

func NewScheduler(svc *Service, intervalMinutes int, logger zerolog.Logger) (*Scheduler, error) {
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("sync interval must be positive, got %d", intervalMinutes)
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		svc:    svc,
		logger: logger,
	}

	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("register sync schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	start := time.Now()
	if err := s.svc.ScheduledSync(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("scheduled sync tick failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("scheduled sync tick completed")
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
