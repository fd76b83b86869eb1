package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askdoc/askdoc/internal/chunker"
	"github.com/askdoc/askdoc/internal/extractor"
	"github.com/askdoc/askdoc/internal/filestore"
	"github.com/askdoc/askdoc/internal/model"
	appErr "github.com/askdoc/askdoc/internal/pkg/errors"
	"github.com/askdoc/askdoc/internal/service"
)

type memStore struct {
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (s *memStore) Type() string { return "mem" }

func (s *memStore) Save(ctx context.Context, key string, r filestore.ReadSeekCloser, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.files[key] = data
	return nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeExtractor ignores the raw bytes and returns preset segments.
type fakeExtractor struct {
	segments []extractor.Segment
	err      error
}

func (e *fakeExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) ([]extractor.Segment, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.segments, nil
}

type fakeEmbedder struct {
	dimension  int
	batchSizes []int
	err        error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.batchSizes = append(e.batchSizes, len(texts))
	vectors := make([][]float32, 0, len(texts))
	for range texts {
		vectors = append(vectors, make([]float32, e.dimension))
	}
	return vectors, nil
}

func (e *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeVectorStore struct {
	upserts   [][]model.EmbeddedChunk
	results   []model.RetrievalResult
	upsertErr error
	searchErr error
}

func (s *fakeVectorStore) EnsureCollection(ctx context.Context, dimension int) error { return nil }

func (s *fakeVectorStore) Upsert(ctx context.Context, chunks []model.EmbeddedChunk) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	batch := make([]model.EmbeddedChunk, len(chunks))
	copy(batch, chunks)
	s.upserts = append(s.upserts, batch)
	return nil
}

func (s *fakeVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]model.RetrievalResult, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.results, nil
}

func newTestIngest(t *testing.T, store *memStore, ext extractor.Extractor, embedder *fakeEmbedder,
	vectors *fakeVectorStore, chunkSize, overlap, batchSize, dimension int) *service.IngestService {
	t.Helper()
	ck, err := chunker.New(chunkSize, overlap)
	require.NoError(t, err)
	return service.NewIngestService(store, ext, ck, embedder, vectors, batchSize, dimension, time.Second)
}

func testJob(path string) *model.IngestJob {
	return &model.IngestJob{ID: "job-1", DocumentID: "doc-1", Path: path, Status: model.JobStatusProcessing}
}

func TestIngestBatchBound(t *testing.T) {
	store := newMemStore()
	store.files["f.pdf"] = []byte("raw")
	// 100 runes, chunk size 10, no overlap: 10 chunks, batch size 3 makes
	// ceil(10/3) = 4 upsert calls.
	ext := &fakeExtractor{segments: []extractor.Segment{{Text: strings.Repeat("x", 100), Page: 1}}}
	embedder := &fakeEmbedder{dimension: 4}
	vectors := &fakeVectorStore{}
	svc := newTestIngest(t, store, ext, embedder, vectors, 10, 0, 3, 4)

	require.NoError(t, svc.Process(context.Background(), testJob("f.pdf")))
	require.Len(t, vectors.upserts, 4)
	total := 0
	for _, batch := range vectors.upserts {
		require.LessOrEqual(t, len(batch), 3)
		total += len(batch)
	}
	require.Equal(t, 10, total)
	require.Equal(t, []int{3, 3, 3, 1}, embedder.batchSizes)
}

func TestIngestMissingFile(t *testing.T) {
	store := newMemStore()
	ext := &fakeExtractor{segments: []extractor.Segment{{Text: "text", Page: 1}}}
	svc := newTestIngest(t, store, ext, &fakeEmbedder{dimension: 4}, &fakeVectorStore{}, 10, 0, 3, 4)

	err := svc.Process(context.Background(), testJob("missing.pdf"))
	require.ErrorIs(t, err, appErr.ErrDocumentUnavailable)
}

func TestIngestExtractionFailure(t *testing.T) {
	store := newMemStore()
	store.files["f.pdf"] = []byte("raw")
	ext := &fakeExtractor{err: fmt.Errorf("%w: broken pdf", appErr.ErrExtractionFailed)}
	svc := newTestIngest(t, store, ext, &fakeEmbedder{dimension: 4}, &fakeVectorStore{}, 10, 0, 3, 4)

	err := svc.Process(context.Background(), testJob("f.pdf"))
	require.ErrorIs(t, err, appErr.ErrExtractionFailed)
}

func TestIngestEmbeddingFailure(t *testing.T) {
	store := newMemStore()
	store.files["f.pdf"] = []byte("raw")
	ext := &fakeExtractor{segments: []extractor.Segment{{Text: "some document text", Page: 1}}}
	embedder := &fakeEmbedder{dimension: 4, err: fmt.Errorf("connection refused")}
	svc := newTestIngest(t, store, ext, embedder, &fakeVectorStore{}, 10, 0, 3, 4)

	err := svc.Process(context.Background(), testJob("f.pdf"))
	require.ErrorIs(t, err, appErr.ErrEmbeddingFailed)
}

func TestIngestUpsertFailure(t *testing.T) {
	store := newMemStore()
	store.files["f.pdf"] = []byte("raw")
	ext := &fakeExtractor{segments: []extractor.Segment{{Text: "some document text", Page: 1}}}
	vectors := &fakeVectorStore{upsertErr: fmt.Errorf("qdrant down")}
	svc := newTestIngest(t, store, ext, &fakeEmbedder{dimension: 4}, vectors, 10, 0, 3, 4)

	err := svc.Process(context.Background(), testJob("f.pdf"))
	require.ErrorIs(t, err, appErr.ErrVectorIndexFailed)
}

func TestIngestDimensionMismatch(t *testing.T) {
	store := newMemStore()
	store.files["f.pdf"] = []byte("raw")
	ext := &fakeExtractor{segments: []extractor.Segment{{Text: "some document text", Page: 1}}}
	// Embedder produces 4-dim vectors while the collection expects 8.
	svc := newTestIngest(t, store, ext, &fakeEmbedder{dimension: 4}, &fakeVectorStore{}, 10, 0, 3, 8)

	err := svc.Process(context.Background(), testJob("f.pdf"))
	require.ErrorIs(t, err, appErr.ErrInvalidConfiguration)
}

func TestIngestReprocessingSupersedes(t *testing.T) {
	store := newMemStore()
	store.files["f.pdf"] = []byte("raw")
	ext := &fakeExtractor{segments: []extractor.Segment{{Text: strings.Repeat("y", 30), Page: 1}}}
	vectors := &fakeVectorStore{}
	svc := newTestIngest(t, store, ext, &fakeEmbedder{dimension: 4}, vectors, 10, 0, 10, 4)

	require.NoError(t, svc.Process(context.Background(), testJob("f.pdf")))
	require.NoError(t, svc.Process(context.Background(), testJob("f.pdf")))
	require.Len(t, vectors.upserts, 2)
	require.Equal(t, len(vectors.upserts[0]), len(vectors.upserts[1]))
	for i := range vectors.upserts[0] {
		// Same document and sequence index map to the same point id, so a
		// second pass overwrites rather than duplicates.
		require.Equal(t, vectors.upserts[0][i].Chunk.ID, vectors.upserts[1][i].Chunk.ID)
		require.NotEmpty(t, vectors.upserts[0][i].Chunk.ID)
	}
}

func TestIngestPageAssignment(t *testing.T) {
	store := newMemStore()
	store.files["f.pdf"] = []byte("raw")
	ext := &fakeExtractor{segments: []extractor.Segment{
		{Text: strings.Repeat("a", 10), Page: 1},
		{Text: strings.Repeat("b", 10), Page: 2},
	}}
	vectors := &fakeVectorStore{}
	svc := newTestIngest(t, store, ext, &fakeEmbedder{dimension: 4}, vectors, 10, 0, 50, 4)

	require.NoError(t, svc.Process(context.Background(), testJob("f.pdf")))
	require.Len(t, vectors.upserts, 1)
	chunks := vectors.upserts[0]
	require.Equal(t, 1, chunks[0].Chunk.Page)
	last := chunks[len(chunks)-1]
	require.Equal(t, 2, last.Chunk.Page)
}
