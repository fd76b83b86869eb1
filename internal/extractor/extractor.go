// Package extractor turns stored documents into ordered text segments with
// page metadata.
package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"

	apperr "github.com/askdoc/askdoc/internal/pkg/errors"
)

// Segment is one extracted span of text, in document order.
type Segment struct {
	Text string
	Page int
}

// Extractor produces the ordered text segments of a document.
type Extractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) ([]Segment, error)
}

// PDFExtractor extracts per-page text from a PDF.
type PDFExtractor struct{}

func NewPDF() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) ([]Segment, error) {
	loader := documentloaders.NewPDF(r, size)
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrExtractionFailed, err)
	}

	segments := make([]Segment, 0, len(docs))
	total := 0
	for i, doc := range docs {
		text := strings.TrimSpace(doc.PageContent)
		if text == "" {
			continue
		}
		page := i + 1
		if v, ok := doc.Metadata["page"]; ok {
			if n, ok := v.(int); ok {
				page = n
			}
		}
		segments = append(segments, Segment{Text: text, Page: page})
		total += len(text)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: document contains no extractable text", apperr.ErrExtractionFailed)
	}
	return segments, nil
}

// Join flattens segments into the single text the chunker consumes, pages
// separated by a blank line.
func Join(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, "\n\n")
}
