// Package scheduler runs periodic housekeeping: pruning finished analysis
// jobs and idle chat sessions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lox/floatchat/internal/metrics"
)

const DefaultSpec = "@every 15m"

// Store is the subset of storage housekeeping needs.
type Store interface {
	DeleteFinishedAnalysisJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config sets retention windows. A zero retention keeps rows forever.
type Config struct {
	Spec              string
	AnalysisRetention time.Duration
	ChatRetention     time.Duration
}

type Scheduler struct {
	store  Store
	cfg    Config
	logger *zap.Logger
	cron   *cron.Cron
	now    func() time.Time

	mu  sync.Mutex
	ctx context.Context
}

func New(store Store, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}

	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		store:  store,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		now:    time.Now,
		ctx:    context.Background(),
	}
	if _, err := s.cron.AddFunc(cfg.Spec, s.runPrune); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Run prunes once, then on schedule until ctx is cancelled. It returns after
// any running prune has finished.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.runPrune()
	s.cron.Start()
	s.logger.Info("scheduler: started", zap.String("spec", s.cfg.Spec))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler: shutting down")
}

func (s *Scheduler) runPrune() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.Prune(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduler: prune failed", zap.Error(err))
	}
}

// Prune deletes rows older than the configured retention windows.
func (s *Scheduler) Prune(ctx context.Context) error {
	now := s.now()
	var errs []error

	if s.cfg.AnalysisRetention > 0 {
		n, err := s.store.DeleteFinishedAnalysisJobsBefore(ctx, now.Add(-s.cfg.AnalysisRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("prune analysis jobs: %w", err))
		} else if n > 0 {
			metrics.HousekeepingDeleted.WithLabelValues("analysis_jobs").Add(float64(n))
			s.logger.Info("scheduler: pruned analysis jobs", zap.Int64("rows", n))
		}
	}

	if s.cfg.ChatRetention > 0 {
		n, err := s.store.DeleteSessionsBefore(ctx, now.Add(-s.cfg.ChatRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("prune chat sessions: %w", err))
		} else if n > 0 {
			metrics.HousekeepingDeleted.WithLabelValues("chat_messages").Add(float64(n))
			s.logger.Info("scheduler: pruned chat messages", zap.Int64("rows", n))
		}
	}

	return errors.Join(errs...)
}

// cronLogger adapts zap to cron's logger interface.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
