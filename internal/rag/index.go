package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Embedder turns texts into fixed-dimension vectors. One call may batch many
// texts; implementations must fail explicitly on quota or dimension errors
// rather than returning zero vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ScoredChunk pairs a chunk with its similarity or fusion score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Index holds the embedded chunks for one document. It is immutable once
// built; a rebuild produces a fresh Index and the session swaps the handle
// wholesale, so in-flight searches keep reading a consistent generation.
type Index struct {
	documentID string
	dim        int
	chunks     []Chunk
	vectors    [][]float32
}

// BuildIndex embeds every chunk and assembles an index. On any embedding
// failure or dimension mismatch no partial index is returned.
func BuildIndex(ctx context.Context, embedder Embedder, documentID string, chunks []Chunk) (*Index, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors := [][]float32{}
	if len(texts) > 0 {
		var err error
		vectors, err = embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingProvider, err)
		}
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbeddingProvider, len(vectors), len(chunks))
	}

	dim := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for chunk %d", ErrEmbeddingProvider, i)
		}
		if dim == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return nil, fmt.Errorf("%w: vector dimension %d for chunk %d, want %d", ErrEmbeddingProvider, len(v), i, dim)
		}
		normalize(v)
	}

	return &Index{
		documentID: documentID,
		dim:        dim,
		chunks:     chunks,
		vectors:    vectors,
	}, nil
}

// DocumentID returns the id of the document this index was built from.
func (ix *Index) DocumentID() string { return ix.documentID }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Search embeds queryText and returns the top k chunks by cosine similarity,
// descending, ties broken by ascending chunk position. An index with zero
// chunks returns an empty result, not an error.
func (ix *Index) Search(ctx context.Context, embedder Embedder, queryText string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if len(ix.chunks) == 0 {
		return []ScoredChunk{}, nil
	}

	vecs, err := embedder.EmbedTexts(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingProvider, err)
	}
	if len(vecs) != 1 || len(vecs[0]) != ix.dim {
		return nil, fmt.Errorf("%w: query vector dimension mismatch", ErrEmbeddingProvider)
	}
	query := vecs[0]
	normalize(query)

	scored := make([]ScoredChunk, len(ix.chunks))
	for i := range ix.chunks {
		scored[i] = ScoredChunk{Chunk: ix.chunks[i], Score: dot(ix.vectors[i], query)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Position < scored[j].Chunk.Position
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Vectors are L2-normalized at build and query time, so cosine similarity
// reduces to a dot product.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
