// Package chunker splits extracted document text into fixed-size
// overlapping chunks. It is pure: no I/O, and identical input always
// produces an identical chunk sequence.
package chunker

import (
	"fmt"

	"github.com/askdoc/askdoc/internal/model"
	apperr "github.com/askdoc/askdoc/internal/pkg/errors"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Chunker slides a window of chunkSize runes across the text, advancing by
// chunkSize-overlap each step. The final window is truncated to the
// remaining text rather than padded.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New validates the chunking parameters once; a bad pair is a startup
// error, not something to paper over at ingest time.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", apperr.ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got %d", apperr.ErrInvalidConfiguration, overlap)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }
func (c *Chunker) Overlap() int   { return c.overlap }

// Split chunks the text for one document. Offsets are rune offsets into
// text; SequenceIndex is contiguous from 0. Empty text yields no chunks.
func (c *Chunker) Split(documentID, text string) []model.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	chunks := make([]model.Chunk, 0, (len(runes)+stride-1)/stride)
	for start := 0; start < len(runes); start += stride {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, model.Chunk{
			DocumentID:    documentID,
			SequenceIndex: len(chunks),
			Text:          string(runes[start:end]),
			StartOffset:   start,
			EndOffset:     end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
