package embedcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askdoc/askdoc/internal/embedcache"
)

type countingEmbedder struct {
	calls      int
	batchCalls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(text))}, nil
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	e.batchCalls++
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float32{float32(len(text))})
	}
	return out, nil
}

func (e *countingEmbedder) ModelName() string { return "counting" }

func TestLruCacheHit(t *testing.T) {
	inner := &countingEmbedder{}
	embedder := embedcache.WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)
}

func TestLruCacheKeyedByTaskType(t *testing.T) {
	inner := &countingEmbedder{}
	embedder := embedcache.WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	_, err = embedder.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestLruCachePartialBatch(t *testing.T) {
	inner := &countingEmbedder{}
	embedder := embedcache.WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := embedder.Embed(context.Background(), "aa", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"aa", "bbb"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2}, {3}}, vectors)
	// Only the miss went to the backing embedder.
	require.Equal(t, 1, inner.calls)
	require.Equal(t, 1, inner.batchCalls)
}

func TestLruCacheDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	embedder := embedcache.WrapLruCacheToEmbedder(inner, 0, time.Minute)
	require.Equal(t, inner, embedder)
}
