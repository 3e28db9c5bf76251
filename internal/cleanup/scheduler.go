package cleanup

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner is one cleanup pass.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Scheduler runs a Runner on a fixed interval, one run at a time.
// A failed run is logged and retried on the next tick.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// ErrSchedulerStarted is returned by a second Start.
var ErrSchedulerStarted = errors.New("cleanup scheduler already started")

// NewScheduler creates a scheduler from a schedule string (see ParseSchedule).
func NewScheduler(runner Runner, schedule string, logger *zap.Logger) (*Scheduler, error) {
	interval, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Interval returns the time between runs.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start begins ticking in the background. The first run happens after one interval.
// A scheduler starts at most once; later calls return ErrSchedulerStarted.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrSchedulerStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	s.logger.Info("cleanup scheduler started", zap.Duration("interval", s.interval))

	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("cleanup run failed", zap.Error(err))
	}
}

// Shutdown stops the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-s.done

	return nil
}
