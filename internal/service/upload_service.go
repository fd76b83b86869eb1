package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/filestore"
	"github.com/askdoc/askdoc/internal/model"
	"github.com/askdoc/askdoc/internal/repo"
)

// UploadService accepts one uploaded document: persist the raw bytes under a
// fresh storage key, record the Document and put exactly one ingestion job
// on the queue. The caller gets the job id back for polling.
type UploadService struct {
	files     filestore.Store
	documents *repo.DocumentRepo
	jobs      *repo.JobRepo
}

func NewUploadService(files filestore.Store, documents *repo.DocumentRepo, jobs *repo.JobRepo) *UploadService {
	return &UploadService{
		files:     files,
		documents: documents,
		jobs:      jobs,
	}
}

func (s *UploadService) Upload(ctx context.Context, originalName, contentType string,
	r filestore.ReadSeekCloser, size int64) (*model.Document, *model.IngestJob, error) {
	key := buildFileKey(originalName)
	if err := s.files.Save(ctx, key, r, size); err != nil {
		return nil, nil, err
	}

	now := time.Now().Unix()
	doc := &model.Document{
		ID:           newID(),
		OriginalName: originalName,
		StoragePath:  key,
		ContentType:  contentType,
		SizeBytes:    size,
		UploadedAt:   now,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, nil, err
	}

	job := &model.IngestJob{
		ID:          newID(),
		DocumentID:  doc.ID,
		Path:        key,
		Status:      model.JobStatusQueued,
		EnqueuedAt:  now,
		ScheduledAt: now,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, nil, err
	}
	logutil.GetLogger(ctx).Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("job_id", job.ID),
		zap.String("original_name", originalName),
		zap.Int64("size_bytes", size),
	)
	return doc, job, nil
}
