package embedcache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askdoc/askdoc/internal/embedcache"
	"github.com/askdoc/askdoc/internal/model"
)

type fakeCacheRepo struct {
	entries map[string][]float32
	getErr  error
	saveErr error
	saves   int
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string][]float32)}
}

func (r *fakeCacheRepo) Get(ctx context.Context, modelName string, taskType string, contentHash string) ([]float32, bool, error) {
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	values, ok := r.entries[modelName+":"+taskType+":"+contentHash]
	return values, ok, nil
}

func (r *fakeCacheRepo) Save(ctx context.Context, item *model.EmbeddingCache) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.entries[item.ModelName+":"+item.TaskType+":"+item.ContentHash] = item.Embedding
	return nil
}

func TestDbCacheHitSkipsEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newFakeCacheRepo()
	embedder := embedcache.WrapDBCacheToEmbedder(inner, cache)

	first, err := embedder.EmbedBatch(context.Background(), []string{"hello"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 1, inner.batchCalls)

	second, err := embedder.EmbedBatch(context.Background(), []string{"hello"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, first, second)
	// The second batch was served entirely from the cache.
	require.Equal(t, 1, inner.batchCalls)
}

func TestDbCacheReadErrorFallsThrough(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newFakeCacheRepo()
	cache.getErr = errors.New("connection refused")
	embedder := embedcache.WrapDBCacheToEmbedder(inner, cache)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"aa", "bbb"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2}, {3}}, vectors)
	// Every lookup degraded to a miss and went to the backing embedder.
	require.Equal(t, 1, inner.batchCalls)
}

func TestDbCacheSaveErrorIgnored(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newFakeCacheRepo()
	cache.saveErr = errors.New("disk full")
	embedder := embedcache.WrapDBCacheToEmbedder(inner, cache)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"hello"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, [][]float32{{5}}, vectors)
	require.Equal(t, 1, cache.saves)
}

func TestDbCacheNilRepoPassthrough(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, inner, embedcache.WrapDBCacheToEmbedder(inner, nil))
}
