package rag

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestUnionDedupKeepsMaxScore(t *testing.T) {
	l1 := scoredList(map[string]float64{"a": 0.9, "b": 0.5}, "a", "b")
	l2 := scoredList(map[string]float64{"b": 0.8, "c": 0.7}, "b", "c")

	got := unionDedup([][]ScoredChunk{l1, l2})
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
	if got[0].Chunk.ID != "a" || got[1].Chunk.ID != "b" || got[2].Chunk.ID != "c" {
		t.Fatalf("wrong order: %s, %s, %s", got[0].Chunk.ID, got[1].Chunk.ID, got[2].Chunk.ID)
	}
	if got[1].Score != 0.8 {
		t.Errorf("duplicate kept score %v, want the max 0.8", got[1].Score)
	}
}

func TestUnionDedupStableOnTies(t *testing.T) {
	l1 := scoredList(map[string]float64{"x": 0.5, "y": 0.5}, "x", "y")
	got := unionDedup([][]ScoredChunk{l1})
	if got[0].Chunk.ID != "x" || got[1].Chunk.ID != "y" {
		t.Fatalf("tied scores reordered: %s, %s", got[0].Chunk.ID, got[1].Chunk.ID)
	}
}

func TestConcatDedupKeepsFirstOccurrence(t *testing.T) {
	l1 := scoredList(map[string]float64{"a": 0.9, "b": 0.8}, "a", "b")
	l2 := scoredList(map[string]float64{"b": 0.95, "c": 0.7}, "b", "c")

	got := concatDedup([][]ScoredChunk{l1, l2})
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
	if got[0].Chunk.ID != "a" || got[1].Chunk.ID != "b" || got[2].Chunk.ID != "c" {
		t.Fatalf("wrong order: %s, %s, %s", got[0].Chunk.ID, got[1].Chunk.ID, got[2].Chunk.ID)
	}
	if got[1].Score != 0.8 {
		t.Errorf("duplicate kept score %v, want the first list's 0.8", got[1].Score)
	}
}

func TestRRFFuseRanksByReciprocalRank(t *testing.T) {
	none := map[string]float64{}
	lists := [][]ScoredChunk{
		scoredList(none, "a", "b"),
		scoredList(none, "b"),
		scoredList(none, "b", "c"),
	}
	got := rrfFuse(lists)
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
	if got[0].Chunk.ID != "b" || got[1].Chunk.ID != "a" || got[2].Chunk.ID != "c" {
		t.Fatalf("wrong order: %s, %s, %s", got[0].Chunk.ID, got[1].Chunk.ID, got[2].Chunk.ID)
	}
	wantB := 1.0/62 + 1.0/61 + 1.0/61
	if math.Abs(got[0].Score-wantB) > 1e-12 {
		t.Errorf("b fused score %v, want %v", got[0].Score, wantB)
	}
	wantA := 1.0 / 61
	if math.Abs(got[1].Score-wantA) > 1e-12 {
		t.Errorf("a fused score %v, want %v", got[1].Score, wantA)
	}
}

func TestRRFFuseTieBreaksByFirstAppearance(t *testing.T) {
	none := map[string]float64{}
	lists := [][]ScoredChunk{
		scoredList(none, "a", "b", "c"),
		scoredList(none, "b", "a"),
		scoredList(none, "c"),
	}
	got := rrfFuse(lists)
	// a and b both score 1/61 + 1/62 and share best rank 1; a entered first.
	if got[0].Chunk.ID != "a" || got[1].Chunk.ID != "b" || got[2].Chunk.ID != "c" {
		t.Fatalf("wrong order: %s, %s, %s", got[0].Chunk.ID, got[1].Chunk.ID, got[2].Chunk.ID)
	}
	if got[0].Score != got[1].Score {
		t.Errorf("a and b should tie, got %v and %v", got[0].Score, got[1].Score)
	}
}

func TestRetrieveAllIsBestEffort(t *testing.T) {
	emb := newFakeEmbedder("cat", "dog")
	e := NewEngine(emb, &fakeCompleter{}, DefaultOptions())
	ix, err := BuildIndex(context.Background(), emb, "d1", testChunks("d1", "cat", "dog"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	emb.failOn["bad variant"] = errors.New("rate limited")
	subs := []SubQuery{
		{Text: "cat", Origin: StrategyMultiQuery, Ordinal: 0},
		{Text: "bad variant", Origin: StrategyMultiQuery, Ordinal: 1},
	}
	lists, err := e.retrieveAll(context.Background(), ix, subs, 2)
	if err != nil {
		t.Fatalf("one failing variant must not fail retrieval: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("got %d lists, want 1 surviving list", len(lists))
	}

	subs = []SubQuery{{Text: "bad variant", Origin: StrategyMultiQuery}}
	if _, err := e.retrieveAll(context.Background(), ix, subs, 2); !errors.Is(err, ErrEmbeddingProvider) {
		t.Fatalf("all variants failing: got %v, want ErrEmbeddingProvider", err)
	}
}
