package model

// EmbeddingCache is one cached embedding, keyed by model, task type and the
// hash of the embedded text. Re-ingesting unchanged content hits the cache
// instead of the embedding service.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
