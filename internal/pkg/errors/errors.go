package errors

import "errors"

var (
	// Ingestion path.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDocumentUnavailable  = errors.New("document unavailable")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrEmbeddingFailed      = errors.New("embedding failed")
	ErrVectorIndexFailed    = errors.New("vector index failed")

	// Query path.
	ErrInvalidQuery           = errors.New("invalid query")
	ErrAnswerGenerationFailed = errors.New("answer generation failed")

	// HTTP surface.
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrConflict = errors.New("conflict")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Retryable reports whether an ingestion failure is transient. Only
// collaborator failures (embedding service, vector index) are worth another
// delivery; a missing file or a malformed PDF will not fix itself.
func Retryable(err error) bool {
	return errors.Is(err, ErrEmbeddingFailed) || errors.Is(err, ErrVectorIndexFailed)
}
