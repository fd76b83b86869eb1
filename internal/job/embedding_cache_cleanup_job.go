package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type embeddingCachePruner interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// EmbeddingCacheCleanupJob drops cached embeddings older than the retention
// window. Stale entries only matter when a model changes its output for the
// same text, so the window is generous.
type EmbeddingCacheCleanupJob struct {
	cache     embeddingCachePruner
	retention time.Duration
}

func NewEmbeddingCacheCleanupJob(cache embeddingCachePruner, retention time.Duration) *EmbeddingCacheCleanupJob {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &EmbeddingCacheCleanupJob{cache: cache, retention: retention}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}
	cutoff := time.Now().Add(-j.retention).Unix()
	pruned, err := j.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 {
		logutil.GetLogger(ctx).Info("pruned expired cached embeddings", zap.Int64("count", pruned))
	}
	return nil
}
