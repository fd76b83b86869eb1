package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/askdoc/askdoc/internal/pkg/errors"
)

func TestNew_RejectsBadParameters(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{name: "zero chunk size", chunkSize: 0, overlap: 0},
		{name: "negative chunk size", chunkSize: -5, overlap: 0},
		{name: "negative overlap", chunkSize: 10, overlap: -1},
		{name: "overlap equals chunk size", chunkSize: 10, overlap: 10},
		{name: "overlap exceeds chunk size", chunkSize: 10, overlap: 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.chunkSize, tt.overlap)
			require.ErrorIs(t, err, apperr.ErrInvalidConfiguration)
		})
	}
}

func TestSplit_KnownBoundaries(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)

	chunks := c.Split("doc-1", "abcdefghij")
	require.Len(t, chunks, 3)

	assert.Equal(t, "abcd", chunks[0].Text)
	assert.Equal(t, "defg", chunks[1].Text)
	assert.Equal(t, "ghij", chunks[2].Text)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 4, chunks[0].EndOffset)
	assert.Equal(t, 3, chunks[1].StartOffset)
	assert.Equal(t, 7, chunks[1].EndOffset)
	assert.Equal(t, 6, chunks[2].StartOffset)
	assert.Equal(t, 10, chunks[2].EndOffset)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.SequenceIndex)
		assert.Equal(t, "doc-1", chunk.DocumentID)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)
	assert.Empty(t, c.Split("doc-1", ""))
}

func TestSplit_TextShorterThanChunkSize(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)
	chunks := c.Split("doc-1", "short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 10, chunks[0].EndOffset)
}

func TestSplit_Deterministic(t *testing.T) {
	c, err := New(7, 3)
	require.NoError(t, err)
	text := strings.Repeat("the quick brown fox ", 40)

	first := c.Split("doc-1", text)
	second := c.Split("doc-1", text)
	require.Equal(t, first, second)
}

func TestSplit_ChunkCountFormula(t *testing.T) {
	// ceil((L-O)/(C-O)) chunks for L > O, one chunk otherwise.
	tests := []struct {
		length    int
		chunkSize int
		overlap   int
	}{
		{length: 10, chunkSize: 4, overlap: 1},
		{length: 100, chunkSize: 10, overlap: 0},
		{length: 101, chunkSize: 10, overlap: 3},
		{length: 1, chunkSize: 4, overlap: 1},
		{length: 9, chunkSize: 9, overlap: 4},
		{length: 1000, chunkSize: 128, overlap: 32},
	}
	for _, tt := range tests {
		c, err := New(tt.chunkSize, tt.overlap)
		require.NoError(t, err)
		text := strings.Repeat("x", tt.length)
		chunks := c.Split("doc-1", text)

		want := 1
		if tt.length > tt.overlap {
			span := tt.chunkSize - tt.overlap
			want = (tt.length - tt.overlap + span - 1) / span
		}
		assert.Len(t, chunks, want, "L=%d C=%d O=%d", tt.length, tt.chunkSize, tt.overlap)
	}
}

func TestSplit_CoverageReconstructsText(t *testing.T) {
	c, err := New(13, 5)
	require.NoError(t, err)
	text := "Express is a Node web framework used by a large number of services."

	chunks := c.Split("doc-1", text)
	require.NotEmpty(t, chunks)

	runes := []rune(text)
	var rebuilt strings.Builder
	prevEnd := 0
	for i, chunk := range chunks {
		// Each chunk matches its declared span.
		assert.Equal(t, string(runes[chunk.StartOffset:chunk.EndOffset]), chunk.Text)
		if i > 0 {
			assert.Equal(t, c.Overlap(), prevEnd-chunk.StartOffset)
		}
		rebuilt.WriteString(string(runes[prevEnd:chunk.EndOffset]))
		prevEnd = chunk.EndOffset
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_MultibyteRunes(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)
	chunks := c.Split("doc-1", "日本語のテキストです")
	require.Len(t, chunks, 3)
	assert.Equal(t, "日本語の", chunks[0].Text)
	assert.Equal(t, "のテキス", chunks[1].Text)
	assert.Equal(t, "ストです", chunks[2].Text)
}
