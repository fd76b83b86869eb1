// Package vectorstore persists embedded chunks and serves top-k similarity
// search over one named collection.
package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/model"
)

// Store is the vector index. One collection holds every document's chunks;
// identity inside the collection is (documentID, sequenceIndex), so
// re-processing the same document supersedes its points.
type Store interface {
	// EnsureCollection creates the collection with the given vector
	// dimension if it does not already exist.
	EnsureCollection(ctx context.Context, dimension int) error
	// Upsert writes one batch of embedded chunks.
	Upsert(ctx context.Context, chunks []model.EmbeddedChunk) error
	// Search returns the topK most similar chunks, score descending.
	Search(ctx context.Context, vector []float32, topK int) ([]model.RetrievalResult, error)
}

type Factory func(cfg config.VectorStoreConfig) (Store, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func New(cfg config.VectorStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("vector_store.type is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
	return factory(cfg)
}
