package rag

import (
	"context"
	"strings"
	"testing"
)

func TestSynthesizeWithoutEvidenceSkipsProvider(t *testing.T) {
	c := &fakeCompleter{}
	e := newTestEngine(c)
	text, err := e.synthesize(context.Background(), "anything?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != noInfoAnswer {
		t.Errorf("got %q, want the no-information answer", text)
	}
	if c.callCount() != 0 {
		t.Errorf("provider called %d times with no evidence", c.callCount())
	}
}

func TestSynthesizeBuildsNumberedContext(t *testing.T) {
	c := &fakeCompleter{responses: []string{"  Cats purr.  "}}
	e := newTestEngine(c)
	evidence := []ScoredChunk{
		{Chunk: Chunk{ID: "1", Text: "Cats purr when content.", Position: 0}, Score: 0.9},
		{Chunk: Chunk{ID: "2", Text: "Purring vibrates the larynx.", Position: 1}, Score: 0.8},
	}
	text, err := e.synthesize(context.Background(), "how do cats purr?", evidence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Cats purr." {
		t.Errorf("answer not trimmed: %q", text)
	}
	prompt := c.prompt(0)
	for _, want := range []string{"Context 1:", "Cats purr when content.", "Context 2:", "Purring vibrates the larynx.", "how do cats purr?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestContextBlockBounded(t *testing.T) {
	evidence := []ScoredChunk{
		{Chunk: Chunk{Text: strings.Repeat("a", 50)}},
		{Chunk: Chunk{Text: strings.Repeat("b", 50)}},
		{Chunk: Chunk{Text: strings.Repeat("c", 50)}},
	}
	block := contextBlock(evidence, 80)
	if !strings.Contains(block, "aaaa") {
		t.Error("first chunk must always be included")
	}
	if strings.Contains(block, "bbbb") || strings.Contains(block, "cccc") {
		t.Error("chunks past the budget leaked into the context")
	}

	// A single oversized chunk is still included.
	huge := []ScoredChunk{{Chunk: Chunk{Text: strings.Repeat("x", 500)}}}
	if !strings.Contains(contextBlock(huge, 80), "xxxx") {
		t.Error("oversized first chunk was dropped")
	}
}

func TestSubAnswerThreadsPriorAnswers(t *testing.T) {
	c := &fakeCompleter{responses: []string{"sub answer two"}}
	e := newTestEngine(c)
	evidence := []ScoredChunk{{Chunk: Chunk{Text: "relevant passage"}}}
	_, err := e.answerSub(context.Background(), "second question?", evidence, []string{"first answer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := c.prompt(0)
	if !strings.Contains(prompt, "first answer") {
		t.Error("prior sub-answer missing from prompt")
	}
	if !strings.Contains(prompt, "Context 2:\nrelevant passage") {
		t.Error("retrieved context not numbered after prior answers")
	}
}

func TestSourcesFromTruncatesExcerpts(t *testing.T) {
	long := strings.Repeat("s", 300)
	evidence := []ScoredChunk{
		{Chunk: Chunk{ID: "c1", Text: long, Position: 2}, Score: 0.9},
		{Chunk: Chunk{ID: "c2", Text: "short", Position: 0}, Score: 0.5},
	}
	got := sourcesFrom(evidence, 3, 200)
	if len(got) != 2 {
		t.Fatalf("got %d sources, want 2", len(got))
	}
	if len([]rune(got[0].Excerpt)) != 203 || !strings.HasSuffix(got[0].Excerpt, "...") {
		t.Errorf("excerpt not truncated: %d runes", len([]rune(got[0].Excerpt)))
	}
	if got[0].ChunkID != "c1" || got[0].Position != 2 || got[0].Score != 0.9 {
		t.Errorf("bad source metadata: %+v", got[0])
	}
	if got[1].Excerpt != "short" {
		t.Errorf("short text must pass through, got %q", got[1].Excerpt)
	}
}
