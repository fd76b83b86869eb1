package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/ai"
	"github.com/askdoc/askdoc/internal/model"
)

// CacheRepo is the slice of the embedding cache store this wrapper needs.
// Satisfied by *repo.EmbeddingCacheRepo.
type CacheRepo interface {
	Get(ctx context.Context, modelName string, taskType string, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

// WrapDBCacheToEmbedder layers a Postgres cache under an embedder so
// re-ingesting an unchanged chunk never hits the embedding service twice.
// Cache failures on either path are logged and ignored; the cache is an
// optimization, not a dependency.
func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo CacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo CacheRepo
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vectors, err := d.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch resolves each text against the cache first and forwards only
// the misses to the wrapped embedder, preserving input order in the result.
func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	modelName := cacheModelName(d.next.ModelName())
	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		contentHash := hashText(text)
		values, ok, err := d.repo.Get(ctx, modelName, taskType, contentHash)
		if err != nil {
			// A broken cache degrades to a miss, never to a failed batch.
			logutil.GetLogger(ctx).Warn("embedding cache read failed", zap.Error(err))
			ok = false
		}
		if ok {
			vectors[i] = values
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db, full batch)", zap.Int("size", len(texts)))
		return vectors, nil
	}
	fresh, err := d.next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	for j, values := range fresh {
		vectors[missIdx[j]] = values
		if err := d.repo.Save(ctx, &model.EmbeddingCache{
			ModelName:   modelName,
			TaskType:    taskType,
			ContentHash: hashText(missTexts[j]),
			Embedding:   values,
			Ctime:       now,
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return vectors, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}

func hashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

func cacheModelName(modelName string) string {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	return modelName
}

func buildCacheKey(modelName, taskType, text string) string {
	return "embed:" + cacheModelName(modelName) + ":" + taskType + ":" + hashText(text)
}
