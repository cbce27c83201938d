package rag

import (
	"fmt"
	"regexp"
	"strings"

	"drive-rag-chatbot/models"
)

const (
	// DefaultChunkSize is the sliding window size in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how far consecutive windows overlap.
	DefaultChunkOverlap = 100

	// minChunkLength filters noise: chunks at or below this trimmed length
	// are dropped.
	minChunkLength = 20
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Chunker splits raw document text into overlapping, boundary-aware
// substrings. It is a pure function of the text and its two parameters:
// identical inputs always produce identical chunk sequences.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker. overlap must be smaller than chunkSize so the
// window always advances; out-of-range values fall back to the defaults.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 10
		}
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split chunks text into ordered overlapping pieces. Whitespace runs are
// collapsed first; a text that fits in one window is returned whole. Each
// window prefers to cut at the last sentence terminator past 50% of the
// window, then at the last space past 70%, then at the window edge.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + c.chunkSize

		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		window := text[start:end]

		lastSentence := maxIndex(
			strings.LastIndex(window, ". "),
			strings.LastIndex(window, "! "),
			strings.LastIndex(window, "? "),
		)

		if float64(lastSentence) > float64(c.chunkSize)*0.5 {
			// Cut just past the terminator so the sentence stays intact.
			end = start + lastSentence + 1
		} else if lastSpace := strings.LastIndex(window, " "); float64(lastSpace) > float64(c.chunkSize)*0.7 {
			end = start + lastSpace
		}

		chunks = append(chunks, strings.TrimSpace(text[start:end]))
		start = end - c.overlap
	}

	filtered := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(strings.TrimSpace(chunk)) > minChunkLength {
			filtered = append(filtered, chunk)
		}
	}
	return filtered
}

// SplitDocument chunks a document and assigns deterministic chunk IDs of the
// form "<document_id>_chunk_<index>".
func (c *Chunker) SplitDocument(doc models.Document) []models.Chunk {
	pieces := c.Split(doc.Content)
	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, models.Chunk{
			ChunkID:      fmt.Sprintf("%s_chunk_%d", doc.ID, i),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Content:      piece,
			ChunkIndex:   i,
		})
	}
	return chunks
}

func maxIndex(vals ...int) int {
	best := -1
	for _, v := range vals {
		if v > best {
			best = v
		}
	}
	return best
}
