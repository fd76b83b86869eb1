package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/model"
)

// qdrantStore is a minimal REST client to Qdrant using cosine distance.
type qdrantStore struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

func init() {
	Register("qdrant", createQdrantStore)
}

func createQdrantStore(cfg config.VectorStoreConfig) (Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("vector_store.url is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("vector_store.collection is required")
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &qdrantStore{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (s *qdrantStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}
	// PUT is idempotent: Qdrant answers 200 for an existing collection with
	// the same schema and 409 for a conflicting one.
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err := s.call(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil)
	if err != nil && strings.Contains(err.Error(), "409") {
		return nil
	}
	return err
}

func (s *qdrantStore) Upsert(ctx context.Context, chunks []model.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i, item := range chunks {
		points[i] = map[string]any{
			"id":     PointID(item.Chunk.DocumentID, item.Chunk.SequenceIndex),
			"vector": item.Vector,
			"payload": map[string]any{
				"chunk_id":       item.Chunk.ID,
				"document_id":    item.Chunk.DocumentID,
				"sequence_index": item.Chunk.SequenceIndex,
				"text":           item.Chunk.Text,
				"start_offset":   item.Chunk.StartOffset,
				"end_offset":     item.Chunk.EndOffset,
				"page":           item.Chunk.Page,
			},
		}
	}
	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	return s.call(ctx, http.MethodPut, path, body, nil)
}

func (s *qdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]model.RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float32       `json:"score"`
			Payload qdrantPayload `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.call(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	results := make([]model.RetrievalResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, model.RetrievalResult{
			Chunk: model.Chunk{
				ID:            r.Payload.ChunkID,
				DocumentID:    r.Payload.DocumentID,
				SequenceIndex: r.Payload.SequenceIndex,
				Text:          r.Payload.Text,
				StartOffset:   r.Payload.StartOffset,
				EndOffset:     r.Payload.EndOffset,
				Page:          r.Payload.Page,
			},
			Score: r.Score,
		})
	}
	return results, nil
}

type qdrantPayload struct {
	ChunkID       string `json:"chunk_id"`
	DocumentID    string `json:"document_id"`
	SequenceIndex int    `json:"sequence_index"`
	Text          string `json:"text"`
	StartOffset   int    `json:"start_offset"`
	EndOffset     int    `json:"end_offset"`
	Page          int    `json:"page"`
}

// PointID derives the stable Qdrant point UUID for a chunk. Same
// (documentID, sequenceIndex) always maps to the same point, so
// re-processing a document overwrites its chunks instead of duplicating
// them.
func PointID(documentID string, sequenceIndex int) string {
	name := fmt.Sprintf("%s:%d", documentID, sequenceIndex)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (s *qdrantStore) call(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s failed: %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
