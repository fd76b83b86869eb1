package model

// Chunk is a bounded contiguous span of a document's extracted text, the
// unit of embedding and retrieval. Offsets are rune offsets into the
// extracted text; SequenceIndex is contiguous from 0 per document.
type Chunk struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	SequenceIndex int    `json:"sequence_index"`
	Text          string `json:"text"`
	StartOffset   int    `json:"start_offset"`
	EndOffset     int    `json:"end_offset"`
	Page          int    `json:"page,omitempty"`
}

// EmbeddedChunk pairs a chunk with its embedding vector. It is written to
// the vector index as a unit; Dimension always matches the configured
// embedding dimension for the whole collection.
type EmbeddedChunk struct {
	Chunk     Chunk     `json:"chunk"`
	Vector    []float32 `json:"vector"`
	Dimension int       `json:"dimension"`
}

// RetrievalResult is one similarity-search hit, transient per query.
type RetrievalResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// ChatExchange is the answer to one question plus the retrieval results the
// answer was grounded on, ordered by similarity score descending.
type ChatExchange struct {
	Question string            `json:"question"`
	Answer   string            `json:"answer"`
	Sources  []RetrievalResult `json:"sources"`
}
