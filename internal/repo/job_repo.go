package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askdoc/askdoc/internal/model"
	apperr "github.com/askdoc/askdoc/internal/pkg/errors"
)

// JobRepo is the durable ingestion queue. Jobs are delivered at least once:
// a dequeue marks the row processing inside a single conditional UPDATE, and
// rows stuck in processing past the visibility timeout are reclaimed back to
// queued. Done and failed are terminal; every transition out of processing
// is guarded on the current status so a reclaimed-and-redelivered job cannot
// be finished twice.
type JobRepo struct {
	db *sql.DB
}

func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Enqueue(ctx context.Context, job *model.IngestJob) error {
	const query = `
		INSERT INTO ingest_jobs (id, document_id, path, status, attempts, error, enqueued_at, scheduled_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.DocumentID,
		job.Path,
		model.JobStatusQueued,
		job.Attempts,
		"",
		job.EnqueuedAt,
		job.ScheduledAt,
	)
	return err
}

// Dequeue claims the oldest due queued job. SKIP LOCKED keeps concurrent
// workers from blocking on the same row. Returns (nil, nil) when the queue
// is empty.
func (r *JobRepo) Dequeue(ctx context.Context) (*model.IngestJob, error) {
	now := time.Now().Unix()
	const query = `
		UPDATE ingest_jobs
		SET status = $1, started_at = $2, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM ingest_jobs
			WHERE status = $3 AND scheduled_at <= $4
			ORDER BY enqueued_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, document_id, path, status, attempts, error, enqueued_at, scheduled_at, started_at, finished_at
	`
	row := r.db.QueryRowContext(ctx, query, model.JobStatusProcessing, now, model.JobStatusQueued, now)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// Ack marks a processing job done.
func (r *JobRepo) Ack(ctx context.Context, jobID string) error {
	return r.transition(ctx, jobID, model.JobStatusProcessing, model.JobStatusDone, "")
}

// Fail marks a processing job failed carrying the triggering error.
func (r *JobRepo) Fail(ctx context.Context, jobID string, cause string) error {
	return r.transition(ctx, jobID, model.JobStatusProcessing, model.JobStatusFailed, cause)
}

// Retry returns a processing job to the queue with a deferred scheduled_at,
// keeping the last error for inspection.
func (r *JobRepo) Retry(ctx context.Context, jobID string, cause string, scheduledAt int64) error {
	const query = `
		UPDATE ingest_jobs
		SET status = $1, error = $2, scheduled_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, model.JobStatusQueued, cause, scheduledAt, jobID, model.JobStatusProcessing)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Requeue puts a failed job back on the queue with a fresh attempt budget.
// Only failed jobs can be requeued; done stays done.
func (r *JobRepo) Requeue(ctx context.Context, jobID string) error {
	now := time.Now().Unix()
	const query = `
		UPDATE ingest_jobs
		SET status = $1, attempts = 0, error = '', scheduled_at = $2, started_at = 0, finished_at = 0
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, model.JobStatusQueued, now, jobID, model.JobStatusFailed)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ReclaimStale returns processing jobs started before cutoff to queued.
// This is the at-least-once re-delivery path for crashed workers.
func (r *JobRepo) ReclaimStale(ctx context.Context, cutoff int64) (int64, error) {
	const query = `
		UPDATE ingest_jobs
		SET status = $1, scheduled_at = $2
		WHERE status = $3 AND started_at < $4
	`
	res, err := r.db.ExecContext(ctx, query, model.JobStatusQueued, time.Now().Unix(), model.JobStatusProcessing, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *JobRepo) Get(ctx context.Context, jobID string) (*model.IngestJob, error) {
	const query = `
		SELECT id, document_id, path, status, attempts, error, enqueued_at, scheduled_at, started_at, finished_at
		FROM ingest_jobs
		WHERE id = $1
	`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByStatuses returns the most recently enqueued jobs in any of the given
// statuses, newest first.
func (r *JobRepo) ListByStatuses(ctx context.Context, statuses []string, limit int) ([]model.IngestJob, error) {
	if len(statuses) == 0 {
		statuses = []string{model.JobStatusQueued, model.JobStatusProcessing, model.JobStatusDone, model.JobStatusFailed}
	}
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, document_id, path, status, attempts, error, enqueued_at, scheduled_at, started_at, finished_at
		FROM ingest_jobs
		WHERE status IN (?)
		ORDER BY enqueued_at DESC
		LIMIT ?
	`
	query, args, err := sqlx.In(query, statuses, limit)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []model.IngestJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *JobRepo) transition(ctx context.Context, jobID, fromStatus, toStatus, cause string) error {
	const query = `
		UPDATE ingest_jobs
		SET status = $1, error = $2, finished_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, toStatus, cause, time.Now().Unix(), jobID, fromStatus)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.IngestJob, error) {
	var job model.IngestJob
	if err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&job.Path,
		&job.Status,
		&job.Attempts,
		&job.Error,
		&job.EnqueuedAt,
		&job.ScheduledAt,
		&job.StartedAt,
		&job.FinishedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}
