package rag

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Chunk is a contiguous slice of a document's text, the atomic unit of
// retrieval. Position is the ordinal within the source document and is
// stable for identical text and chunking configuration; IDs are fresh per
// index generation.
type Chunk struct {
	ID         string `json:"chunk_id" bson:"chunk_id"`
	Text       string `json:"text" bson:"text"`
	Position   int    `json:"position" bson:"position"`
	DocumentID string `json:"document_id" bson:"document_id"`
}

// SplitText splits text into windows of size characters with overlap shared
// between consecutive windows. Boundaries are snapped back to the nearest
// whitespace so words are not cut mid-way, which keeps the split
// deterministic for identical input and configuration.
//
// Empty or whitespace-only text yields an empty slice; the caller decides
// whether that is an ingestion failure.
func SplitText(docID, text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidArgument, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, size)", ErrInvalidArgument, overlap)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		} else {
			// Snap the cut back to a space so words stay whole. Give up and
			// cut hard if there is no space in the window.
			cut := end
			for cut > start && !isSpace(runes[cut-1]) {
				cut--
			}
			if cut > start {
				end = cut
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, Chunk{
				ID:         uuid.NewString(),
				Text:       piece,
				Position:   len(chunks),
				DocumentID: docID,
			})
		}

		if end == len(runes) {
			break
		}
		// Next window starts overlap characters before the actual cut,
		// snapped back to a word boundary. When that would not advance,
		// continue from the cut instead so no text is skipped.
		next := end - overlap
		for next > start && !isSpace(runes[next]) && !isSpace(runes[next-1]) {
			next--
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// WordCount counts whitespace-separated words, matching what is reported to
// callers at upload time.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
