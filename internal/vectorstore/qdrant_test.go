package vectorstore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/model"
	"github.com/askdoc/askdoc/internal/vectorstore"
)

func newQdrant(t *testing.T, url string) vectorstore.Store {
	t.Helper()
	store, err := vectorstore.New(config.VectorStoreConfig{
		Type:       "qdrant",
		URL:        url,
		APIKey:     "secret",
		Collection: "chunks",
	})
	require.NoError(t, err)
	return store
}

func TestPointIDStable(t *testing.T) {
	first := vectorstore.PointID("doc-1", 0)
	second := vectorstore.PointID("doc-1", 0)
	other := vectorstore.PointID("doc-1", 1)
	require.Equal(t, first, second)
	require.NotEqual(t, first, other)
	require.Len(t, first, 36)
}

func TestQdrantEnsureCollection(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newQdrant(t, server.URL)
	require.NoError(t, store.EnsureCollection(context.Background(), 768))
	require.Equal(t, "/collections/chunks", gotPath)
	require.Equal(t, "secret", gotAPIKey)
	vectors := gotBody["vectors"].(map[string]any)
	require.Equal(t, float64(768), vectors["size"])
	require.Equal(t, "Cosine", vectors["distance"])
}

func TestQdrantEnsureCollectionExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	store := newQdrant(t, server.URL)
	require.NoError(t, store.EnsureCollection(context.Background(), 768))
}

func TestQdrantUpsert(t *testing.T) {
	var gotQuery string
	var gotBody struct {
		Points []struct {
			ID      string         `json:"id"`
			Vector  []float32      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/collections/chunks/points", r.URL.Path)
		gotQuery = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newQdrant(t, server.URL)
	chunk := model.Chunk{
		ID:            vectorstore.PointID("doc-1", 0),
		DocumentID:    "doc-1",
		SequenceIndex: 0,
		Text:          "hello",
		StartOffset:   0,
		EndOffset:     5,
	}
	err := store.Upsert(context.Background(), []model.EmbeddedChunk{
		{Chunk: chunk, Vector: []float32{0.1, 0.2}, Dimension: 2},
	})
	require.NoError(t, err)
	require.Equal(t, "wait=true", gotQuery)
	require.Len(t, gotBody.Points, 1)
	require.Equal(t, vectorstore.PointID("doc-1", 0), gotBody.Points[0].ID)
	require.Equal(t, []float32{0.1, 0.2}, gotBody.Points[0].Vector)
	require.Equal(t, "hello", gotBody.Points[0].Payload["text"])
	require.Equal(t, "doc-1", gotBody.Points[0].Payload["document_id"])
}

func TestQdrantSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/collections/chunks/points/search", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, float64(2), body["limit"])
		require.Equal(t, true, body["with_payload"])
		_, _ = w.Write([]byte(`{
			"result": [
				{"score": 0.91, "payload": {"chunk_id": "c1", "document_id": "doc-1", "sequence_index": 0, "text": "first", "start_offset": 0, "end_offset": 5, "page": 1}},
				{"score": 0.42, "payload": {"chunk_id": "c2", "document_id": "doc-1", "sequence_index": 3, "text": "second", "start_offset": 10, "end_offset": 16, "page": 2}}
			]
		}`))
	}))
	defer server.Close()

	store := newQdrant(t, server.URL)
	results, err := store.Search(context.Background(), []float32{0.1, 0.2}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, float32(0.91), results[0].Score)
	require.Equal(t, "first", results[0].Chunk.Text)
	require.Equal(t, "doc-1", results[0].Chunk.DocumentID)
	require.Equal(t, 3, results[1].Chunk.SequenceIndex)
	require.Equal(t, 2, results[1].Chunk.Page)
}

func TestQdrantErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	store := newQdrant(t, server.URL)
	_, err := store.Search(context.Background(), []float32{0.1}, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}
