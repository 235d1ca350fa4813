package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appreview "github.com/parcelreview/backend/internal/application/review"
	"github.com/parcelreview/backend/internal/infrastructure/telemetry"
)

// InvitationProcessor runs one pipeline pass
type InvitationProcessor interface {
	Process(ctx context.Context, limit int) (*appreview.ProcessReport, error)
}

// ReviewInvitationSchedulerConfig holds configuration for the periodic run
type ReviewInvitationSchedulerConfig struct {
	PollInterval time.Duration
	// RunTimeout stops a run from starting new batches once elapsed,
	// 0 disables the bound
	RunTimeout time.Duration
	// ProcessLimit caps each scheduled run, 0 means unbounded
	ProcessLimit int
	// RunOnStart triggers a run immediately instead of waiting for the first tick
	RunOnStart bool
}

// DefaultReviewInvitationSchedulerConfig returns the default configuration
func DefaultReviewInvitationSchedulerConfig() ReviewInvitationSchedulerConfig {
	return ReviewInvitationSchedulerConfig{
		PollInterval: 15 * time.Minute,
		RunTimeout:   10 * time.Minute,
	}
}

// Validate checks the configuration
func (c ReviewInvitationSchedulerConfig) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("%w: run timeout cannot be negative", ErrInvalidConfig)
	}
	if c.ProcessLimit < 0 {
		return fmt.Errorf("%w: process limit cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// ReviewInvitationScheduler runs the invitation pipeline every PollInterval.
// At most one run is active at a time; a tick that finds a run in progress is skipped.
type ReviewInvitationScheduler struct {
	config    ReviewInvitationSchedulerConfig
	processor InvitationProcessor
	logger    *zap.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	statsMu    sync.Mutex
	runs       int
	skipped    int
	lastReport *appreview.ProcessReport
	lastErr    error
}

// NewReviewInvitationScheduler creates a new scheduler
func NewReviewInvitationScheduler(
	config ReviewInvitationSchedulerConfig,
	processor InvitationProcessor,
	logger *zap.Logger,
) (*ReviewInvitationScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ReviewInvitationScheduler{
		config:    config,
		processor: processor,
		logger:    logger.Named("scheduler.review_invitations"),
	}, nil
}

// Start launches the polling loop. Calling Start twice is a no-op.
func (s *ReviewInvitationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Review invitation scheduler started",
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Duration("run_timeout", s.config.RunTimeout),
		zap.Int("process_limit", s.config.ProcessLimit),
	)
	return nil
}

// Stop cancels the loop and any run in flight, then waits for it to return
func (s *ReviewInvitationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Review invitation scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ReviewInvitationScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *ReviewInvitationScheduler) tick(ctx context.Context) {
	_, err := s.run(ctx, s.config.ProcessLimit, "scheduler")
	if errors.Is(err, ErrRunInProgress) {
		s.statsMu.Lock()
		s.skipped++
		s.statsMu.Unlock()
		s.logger.Debug("Skipping tick, previous run still in progress")
	}
}

// RunNow runs the pipeline immediately with the given limit.
// It returns ErrRunInProgress when another run is active.
func (s *ReviewInvitationScheduler) RunNow(ctx context.Context, limit int) (*appreview.ProcessReport, error) {
	return s.run(ctx, limit, "manual")
}

func (s *ReviewInvitationScheduler) run(ctx context.Context, limit int, trigger string) (*appreview.ProcessReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	var (
		report *appreview.ProcessReport
		err    error
	)
	labels := telemetry.OperationLabels(telemetry.OperationProcessInvitations, map[string]string{
		telemetry.ProfilingLabelTrigger: trigger,
	})
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		report, err = s.processor.Process(ctx, limit)
	})

	s.statsMu.Lock()
	s.runs++
	s.lastReport = report
	s.lastErr = err
	s.statsMu.Unlock()

	if err != nil {
		s.logger.Error("Review invitation run failed", zap.String("trigger", trigger), zap.Error(err))
		return report, err
	}
	s.logger.Info("Review invitation run finished",
		zap.String("trigger", trigger),
		zap.String("run_id", report.RunID),
		zap.Int("processed", report.Processed()),
	)
	return report, nil
}

// IsRunning reports whether a run is currently active
func (s *ReviewInvitationScheduler) IsRunning() bool {
	return s.running.Load()
}

// SchedulerStats is a snapshot of the scheduler counters
type SchedulerStats struct {
	Runs       int                      `json:"runs"`
	Skipped    int                      `json:"skipped"`
	Running    bool                     `json:"running"`
	LastReport *appreview.ProcessReport `json:"last_report,omitempty"`
	LastError  string                   `json:"last_error,omitempty"`
}

// Stats returns a snapshot of the scheduler counters
func (s *ReviewInvitationScheduler) Stats() SchedulerStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	stats := SchedulerStats{
		Runs:       s.runs,
		Skipped:    s.skipped,
		Running:    s.running.Load(),
		LastReport: s.lastReport,
	}
	if s.lastErr != nil {
		stats.LastError = s.lastErr.Error()
	}
	return stats
}
