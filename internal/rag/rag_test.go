package rag

import (
	"context"
	"strings"
	"sync"
)

// fakeEmbedder produces deterministic vectors: one dimension per vocabulary
// word holding its occurrence count, plus a constant bias dimension so no
// vector is zero. Texts sharing vocabulary words score higher after the
// index normalizes them.
type fakeEmbedder struct {
	mu     sync.Mutex
	vocab  []string
	calls  int
	failOn map[string]error
}

func newFakeEmbedder(vocab ...string) *fakeEmbedder {
	return &fakeEmbedder{vocab: vocab, failOn: map[string]error{}}
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err, ok := f.failOn[text]; ok {
			return nil, err
		}
		lower := strings.ToLower(text)
		v := make([]float32, len(f.vocab)+1)
		for j, w := range f.vocab {
			v[j] = float32(strings.Count(lower, w))
		}
		v[len(f.vocab)] = 1
		out[i] = v
	}
	return out, nil
}

// fakeCompleter replays scripted responses in order and records every prompt.
type fakeCompleter struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	calls     int
	err       error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "answer", nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCompleter) prompt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[i]
}

func testChunks(docID string, texts ...string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{ID: t, Text: t, Position: i, DocumentID: docID}
	}
	return chunks
}

func scoredList(scores map[string]float64, ids ...string) []ScoredChunk {
	out := make([]ScoredChunk, len(ids))
	for i, id := range ids {
		out[i] = ScoredChunk{Chunk: Chunk{ID: id, Text: id, Position: i}, Score: scores[id]}
	}
	return out
}
