// Package schedule drives the service's periodic maintenance: reclaiming
// stale ingestion jobs and pruning the embedding cache.
package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs each registered maintenance job on its cron spec. A tick
// that fires while the previous run of the same job is still going is
// skipped, so a slow queue sweep never stacks.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func New() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{cron: cron.New(cron.WithParser(parser))}
}

func (s *Scheduler) Schedule(spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, s.runner(job)); err != nil {
		return err
	}
	logutil.GetLogger(context.Background()).Info("maintenance job scheduled",
		zap.String("job", job.Name()),
		zap.String("spec", spec),
	)
	return nil
}

// Start begins firing ticks. ctx is handed to every job run, so cancelling
// it stops in-flight maintenance along with the rest of the process.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = ctx
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	<-done.Done()
}

func (s *Scheduler) runner(job Job) func() {
	var running atomic.Bool
	return func() {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		if !running.CompareAndSwap(false, true) {
			logger.Info("maintenance tick skipped, previous run still going")
			return
		}
		defer running.Store(false)

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			logger.Error("maintenance job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Info("maintenance job finished", zap.Duration("duration", time.Since(start)))
	}
}
