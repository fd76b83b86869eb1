// Package worker drains the ingestion queue with a fixed number of
// concurrent slots. Each slot claims one job, runs it to completion and
// only then claims the next.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/model"
	appErr "github.com/askdoc/askdoc/internal/pkg/errors"
)

// Queue is the slice of the job repository the pool drives.
type Queue interface {
	Dequeue(ctx context.Context) (*model.IngestJob, error)
	Ack(ctx context.Context, jobID string) error
	Fail(ctx context.Context, jobID string, cause string) error
	Retry(ctx context.Context, jobID string, cause string, scheduledAt int64) error
}

// Processor runs the ingestion pipeline for one claimed job.
type Processor interface {
	Process(ctx context.Context, job *model.IngestJob) error
}

type Pool struct {
	queue        Queue
	processor    Processor
	workerCount  int
	pollInterval time.Duration
	maxAttempts  int
	retryBackoff time.Duration
	wg           sync.WaitGroup
}

func NewPool(queue Queue, processor Processor, workerCount int, pollInterval time.Duration,
	maxAttempts int, retryBackoff time.Duration) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Pool{
		queue:        queue,
		processor:    processor,
		workerCount:  workerCount,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		retryBackoff: retryBackoff,
	}
}

// Start launches the worker slots. They stop claiming new jobs when ctx is
// cancelled; Wait blocks until in-flight jobs finish.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func(slot int) {
			defer p.wg.Done()
			p.run(ctx, slot)
		}(i)
	}
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, slot int) {
	logger := logutil.GetLogger(ctx).With(zap.Int("worker", slot))
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("dequeue failed", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			p.sleep(ctx)
			continue
		}
		p.handle(ctx, logger, job)
	}
}

func (p *Pool) handle(ctx context.Context, logger *zap.Logger, job *model.IngestJob) {
	logger = logger.With(zap.String("job_id", job.ID), zap.Int("attempts", job.Attempts))
	logger.Info("job claimed")
	err := p.processor.Process(ctx, job)
	if err == nil {
		if ackErr := p.queue.Ack(ctx, job.ID); ackErr != nil {
			logger.Warn("ack failed, job may be re-delivered", zap.Error(ackErr))
			return
		}
		logger.Info("job done")
		return
	}

	// A failing job is recorded and released; it never takes the slot or
	// its siblings down with it.
	if appErr.Retryable(err) && job.Attempts < p.maxAttempts {
		scheduledAt := time.Now().Add(p.retryBackoff).Unix()
		if retryErr := p.queue.Retry(ctx, job.ID, err.Error(), scheduledAt); retryErr != nil {
			logger.Warn("retry release failed", zap.Error(retryErr))
			return
		}
		logger.Warn("job failed, scheduled for retry", zap.Error(err), zap.Int64("scheduled_at", scheduledAt))
		return
	}
	if failErr := p.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
		logger.Warn("fail transition lost", zap.Error(failErr))
		return
	}
	logger.Error("job failed permanently", zap.Error(err))
}

func (p *Pool) sleep(ctx context.Context) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
