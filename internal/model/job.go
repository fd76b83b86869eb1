package model

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// IngestJob is one unit of work on the ingestion queue. A job is owned by
// exactly one worker between dequeue and ack/fail; done and failed are
// terminal.
type IngestJob struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Path        string `json:"path"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	Error       string `json:"error,omitempty"`
	EnqueuedAt  int64  `json:"enqueued_at"`
	ScheduledAt int64  `json:"scheduled_at"`
	StartedAt   int64  `json:"started_at,omitempty"`
	FinishedAt  int64  `json:"finished_at,omitempty"`
}

func (j *IngestJob) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}
