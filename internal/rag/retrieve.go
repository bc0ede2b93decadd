package rag

import (
	"context"
	"sort"
	"sync"
)

// rrfK is the standard reciprocal-rank-fusion smoothing constant.
const rrfK = 60

// retrieveAll runs a top-k search for every sub-query concurrently. Searches
// are best-effort per variant: the call fails only when every variant fails,
// and then with the first error in sub-query order.
func (e *Engine) retrieveAll(ctx context.Context, ix *Index, subs []SubQuery, k int) ([][]ScoredChunk, error) {
	lists := make([][]ScoredChunk, len(subs))
	errs := make([]error, len(subs))

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			lists[i], errs[i] = ix.Search(ctx, e.embedder, query, k)
		}(i, sub.Text)
	}
	wg.Wait()

	var out [][]ScoredChunk
	var firstErr error
	for i, list := range lists {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		out = append(out, list)
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// unionDedup merges ranked lists keeping one entry per chunk ID with its
// maximum similarity score. Order is by score descending; ties keep the
// order of first appearance across the lists.
func unionDedup(lists [][]ScoredChunk) []ScoredChunk {
	best := make(map[string]int)
	var merged []ScoredChunk
	for _, list := range lists {
		for _, sc := range list {
			if j, ok := best[sc.Chunk.ID]; ok {
				if sc.Score > merged[j].Score {
					merged[j].Score = sc.Score
				}
				continue
			}
			best[sc.Chunk.ID] = len(merged)
			merged = append(merged, sc)
		}
	}
	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Score > merged[b].Score
	})
	return merged
}

// concatDedup appends the lists in order, keeping the first occurrence of
// each chunk ID. Used by stepback, where the original question's results
// take precedence over the broader reformulation's.
func concatDedup(lists [][]ScoredChunk) []ScoredChunk {
	seen := make(map[string]bool)
	var out []ScoredChunk
	for _, list := range lists {
		for _, sc := range list {
			if seen[sc.Chunk.ID] {
				continue
			}
			seen[sc.Chunk.ID] = true
			out = append(out, sc)
		}
	}
	return out
}

// rrfFuse combines ranked lists with reciprocal rank fusion: each chunk
// accumulates 1/(k+rank) over the lists it appears in, ranks counted from 1.
// Ties break by the chunk's best rank in any list, then by first appearance.
func rrfFuse(lists [][]ScoredChunk) []ScoredChunk {
	type fused struct {
		sc       ScoredChunk
		score    float64
		bestRank int
		seen     int
	}
	byID := make(map[string]*fused)
	var order []*fused
	for _, list := range lists {
		for rank, sc := range list {
			f, ok := byID[sc.Chunk.ID]
			if !ok {
				f = &fused{sc: sc, bestRank: rank + 1, seen: len(order)}
				byID[sc.Chunk.ID] = f
				order = append(order, f)
			}
			f.score += 1.0 / float64(rrfK+rank+1)
			if rank+1 < f.bestRank {
				f.bestRank = rank + 1
			}
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		if order[a].score != order[b].score {
			return order[a].score > order[b].score
		}
		if order[a].bestRank != order[b].bestRank {
			return order[a].bestRank < order[b].bestRank
		}
		return order[a].seen < order[b].seen
	})
	out := make([]ScoredChunk, len(order))
	for i, f := range order {
		out[i] = f.sc
		out[i].Score = f.score
	}
	return out
}
