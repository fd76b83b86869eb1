package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/ai"
	"github.com/askdoc/askdoc/internal/chunker"
	"github.com/askdoc/askdoc/internal/extractor"
	"github.com/askdoc/askdoc/internal/filestore"
	"github.com/askdoc/askdoc/internal/model"
	appErr "github.com/askdoc/askdoc/internal/pkg/errors"
	"github.com/askdoc/askdoc/internal/vectorstore"
)

const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

// IngestService runs the indexing pipeline for one job: open the stored
// file, extract text, chunk it, embed each batch and upsert it into the
// vector index. Batches are written in sequence order, so a partially
// indexed document is always a prefix and a re-delivery simply overwrites
// the same points.
type IngestService struct {
	files        filestore.Store
	extractor    extractor.Extractor
	chunker      *chunker.Chunker
	embedder     ai.IEmbedder
	vectors      vectorstore.Store
	batchSize    int
	dimension    int
	embedTimeout time.Duration
}

func NewIngestService(files filestore.Store, ext extractor.Extractor, ck *chunker.Chunker,
	embedder ai.IEmbedder, vectors vectorstore.Store, batchSize, dimension int, embedTimeout time.Duration) *IngestService {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &IngestService{
		files:        files,
		extractor:    ext,
		chunker:      ck,
		embedder:     embedder,
		vectors:      vectors,
		batchSize:    batchSize,
		dimension:    dimension,
		embedTimeout: embedTimeout,
	}
}

func (s *IngestService) Process(ctx context.Context, job *model.IngestJob) error {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job_id", job.ID),
		zap.String("document_id", job.DocumentID),
	)

	reader, err := s.files.Open(ctx, job.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", appErr.ErrDocumentUnavailable, job.Path, err)
	}
	data, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", appErr.ErrDocumentUnavailable, job.Path, err)
	}

	segments, err := s.extractor.Extract(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	chunks := s.chunker.Split(job.DocumentID, extractor.Join(segments))
	assignPages(chunks, segments)
	logger.Info("document extracted", zap.Int("pages", len(segments)), zap.Int("chunks", len(chunks)))

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.indexBatch(ctx, chunks[start:end]); err != nil {
			return err
		}
	}
	logger.Info("document indexed", zap.Int("chunks", len(chunks)))
	return nil
}

func (s *IngestService) indexBatch(ctx context.Context, batch []model.Chunk) error {
	texts := make([]string, 0, len(batch))
	for _, chunk := range batch {
		texts = append(texts, chunk.Text)
	}
	ectx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()
	vectors, err := s.embedder.EmbedBatch(ectx, texts, taskTypeDocument)
	if err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrEmbeddingFailed, err)
	}

	embedded := make([]model.EmbeddedChunk, 0, len(batch))
	for i, chunk := range batch {
		if s.dimension > 0 && len(vectors[i]) != s.dimension {
			return fmt.Errorf("%w: embedding dimension %d does not match configured dimension %d",
				appErr.ErrInvalidConfiguration, len(vectors[i]), s.dimension)
		}
		chunk.ID = vectorstore.PointID(chunk.DocumentID, chunk.SequenceIndex)
		embedded = append(embedded, model.EmbeddedChunk{
			Chunk:     chunk,
			Vector:    vectors[i],
			Dimension: len(vectors[i]),
		})
	}
	if err := s.vectors.Upsert(ctx, embedded); err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrVectorIndexFailed, err)
	}
	return nil
}

// assignPages maps each chunk to the page its start offset falls on. The
// joined text separates pages with a two-rune blank line, mirroring
// extractor.Join.
func assignPages(chunks []model.Chunk, segments []extractor.Segment) {
	if len(segments) == 0 {
		return
	}
	type span struct {
		start int
		page  int
	}
	spans := make([]span, 0, len(segments))
	offset := 0
	for _, seg := range segments {
		spans = append(spans, span{start: offset, page: seg.Page})
		offset += len([]rune(seg.Text)) + 2
	}
	pos := 0
	for i := range chunks {
		for pos+1 < len(spans) && spans[pos+1].start <= chunks[i].StartOffset {
			pos++
		}
		chunks[i].Page = spans[pos].page
	}
}
