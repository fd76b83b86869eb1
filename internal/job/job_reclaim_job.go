package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type staleJobReclaimer interface {
	ReclaimStale(ctx context.Context, cutoff int64) (int64, error)
}

// JobReclaimJob returns ingestion jobs stuck in processing past the
// visibility timeout to the queue, so work owned by a crashed worker is
// eventually re-delivered.
type JobReclaimJob struct {
	queue      staleJobReclaimer
	visibility time.Duration
}

func NewJobReclaimJob(queue staleJobReclaimer, visibility time.Duration) *JobReclaimJob {
	if visibility <= 0 {
		visibility = 5 * time.Minute
	}
	return &JobReclaimJob{queue: queue, visibility: visibility}
}

func (j *JobReclaimJob) Name() string {
	return "job_reclaim"
}

func (j *JobReclaimJob) Run(ctx context.Context) error {
	if j.queue == nil {
		return nil
	}
	cutoff := time.Now().Add(-j.visibility).Unix()
	reclaimed, err := j.queue.ReclaimStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logutil.GetLogger(ctx).Warn("reclaimed stale ingest jobs", zap.Int64("count", reclaimed))
	}
	return nil
}
