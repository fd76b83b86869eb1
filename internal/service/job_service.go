package service

import (
	"context"

	"github.com/askdoc/askdoc/internal/model"
	"github.com/askdoc/askdoc/internal/repo"
)

// JobService is the read/admin surface over the ingestion queue.
type JobService struct {
	jobs *repo.JobRepo
}

func NewJobService(jobs *repo.JobRepo) *JobService {
	return &JobService{jobs: jobs}
}

func (s *JobService) Get(ctx context.Context, jobID string) (*model.IngestJob, error) {
	return s.jobs.Get(ctx, jobID)
}

func (s *JobService) List(ctx context.Context, statuses []string, limit int) ([]model.IngestJob, error) {
	return s.jobs.ListByStatuses(ctx, statuses, limit)
}

// Requeue puts a failed job back on the queue. Jobs in any other state are
// left alone; the conflict surfaces to the caller.
func (s *JobService) Requeue(ctx context.Context, jobID string) error {
	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		return err
	}
	return s.jobs.Requeue(ctx, jobID)
}
