package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

// DefaultSchedule runs the check at the top of every hour.
const DefaultSchedule = "@hourly"

const runTimeout = 30 * time.Minute

// Scheduler runs a Checker on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	checker  *Checker
	schedule string
	logger   infralogger.Logger
	cron     *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler; an empty schedule uses DefaultSchedule. The schedule
// accepts the standard 5-field format and descriptors such as @hourly.
func NewScheduler(checker *Checker, schedule string, logger infralogger.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = infralogger.NewNop()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		checker:  checker,
		schedule: schedule,
		logger:   logger,
		cron:     c,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the check and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runOnce); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Model maintenance scheduled", infralogger.String("schedule", s.schedule))
	return nil
}

// Stop cancels a run in flight and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Model maintenance stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.checker.Run(ctx)
	if err != nil {
		s.logger.Warn("Model maintenance run failed", infralogger.Error(err))
		return
	}
	s.logger.Info("Model maintenance run complete",
		infralogger.Any("activated", report.Activated),
		infralogger.Any("retrained", report.Retrained),
		infralogger.Any("trained", report.Trained),
		infralogger.Duration("duration", time.Since(start)),
	)
}
