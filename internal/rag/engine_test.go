package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const petDoc = `Cats purr when they feel safe and content. A cat's purr comes from
rapid vibration of the muscles in the larynx. Dogs bark to alert their
pack and to greet strangers at the door. Unlike dogs, cats groom
themselves for hours every day.`

func buildPetIndex(t *testing.T, e *Engine) *Index {
	t.Helper()
	ix, err := e.BuildIndex(context.Background(), "doc-1", petDoc)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	if ix.Len() < 2 {
		t.Fatalf("expected several chunks, got %d", ix.Len())
	}
	return ix
}

func smallOpts() Options {
	opts := DefaultOptions()
	opts.ChunkSize = 80
	opts.ChunkOverlap = 20
	opts.TopK = 2
	return opts
}

func TestAskValidation(t *testing.T) {
	e := NewEngine(newFakeEmbedder("cat"), &fakeCompleter{}, DefaultOptions())
	if _, err := e.Ask(context.Background(), &Index{}, "   ", StrategyBasic); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("blank question: got %v, want ErrInvalidArgument", err)
	}
	if _, err := e.Ask(context.Background(), nil, "q", StrategyBasic); !errors.Is(err, ErrNoActiveIndex) {
		t.Fatalf("nil index: got %v, want ErrNoActiveIndex", err)
	}
}

func TestBuildIndexEmptyDocument(t *testing.T) {
	e := NewEngine(newFakeEmbedder("cat"), &fakeCompleter{}, DefaultOptions())
	if _, err := e.BuildIndex(context.Background(), "doc-1", "  \n "); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("got %v, want ErrEmptyDocument", err)
	}
}

func TestAskBasic(t *testing.T) {
	c := &fakeCompleter{responses: []string{"Cats purr when they feel safe."}}
	e := NewEngine(newFakeEmbedder("purr", "bark"), c, smallOpts())
	ix := buildPetIndex(t, e)

	ans, err := e.Ask(context.Background(), ix, "why do cats purr?", StrategyBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "Cats purr when they feel safe." || ans.Strategy != StrategyBasic {
		t.Fatalf("bad answer: %+v", ans)
	}
	if c.callCount() != 1 {
		t.Errorf("basic strategy made %d provider calls, want 1", c.callCount())
	}
	if len(ans.Sources) == 0 || len(ans.Sources) > 3 {
		t.Fatalf("got %d sources", len(ans.Sources))
	}
	if !strings.Contains(ans.Sources[0].Excerpt, "purr") {
		t.Errorf("top source unrelated to the question: %q", ans.Sources[0].Excerpt)
	}
}

func TestAskMultiQueryFansOut(t *testing.T) {
	c := &fakeCompleter{responses: []string{
		"How do cats purr?\nWhy do cats purr?\nWhat is purring?\nWhen do cats purr?\nDo cats purr when happy?",
		"They purr when content.",
	}}
	e := NewEngine(newFakeEmbedder("purr", "bark"), c, smallOpts())
	ix := buildPetIndex(t, e)

	ans, err := e.Ask(context.Background(), ix, "why do cats purr?", StrategyMultiQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "They purr when content." {
		t.Fatalf("got %q", ans.Text)
	}
	if c.callCount() != 2 {
		t.Errorf("made %d provider calls, want transform + synthesis", c.callCount())
	}
	seen := map[string]bool{}
	for _, s := range ans.Sources {
		if seen[s.ChunkID] {
			t.Errorf("duplicate chunk %s in sources", s.ChunkID)
		}
		seen[s.ChunkID] = true
	}
}

func TestAskFusion(t *testing.T) {
	c := &fakeCompleter{responses: []string{
		"cat purring\npurr mechanics\ncontent cats\nlarynx vibration",
		"Purring comes from the larynx.",
	}}
	e := NewEngine(newFakeEmbedder("purr", "larynx"), c, smallOpts())
	ix := buildPetIndex(t, e)

	ans, err := e.Ask(context.Background(), ix, "how does purring work?", StrategyFusion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Strategy != StrategyFusion {
		t.Fatalf("got strategy %q", ans.Strategy)
	}
	for i := 1; i < len(ans.Sources); i++ {
		if ans.Sources[i].Score > ans.Sources[i-1].Score {
			t.Errorf("fused scores not descending: %v then %v", ans.Sources[i-1].Score, ans.Sources[i].Score)
		}
	}
}

func TestAskDecompositionThreadsSubAnswers(t *testing.T) {
	c := &fakeCompleter{responses: []string{
		"Why do cats purr?\nWhy do dogs bark?\nHow do the sounds differ?",
		"Cats purr from contentment.",
		"Dogs bark to alert and greet.",
		"Purring is continuous, barking is not.",
		"Cats purr out of contentment while dogs bark to alert; the sounds differ in mechanism.",
	}}
	e := NewEngine(newFakeEmbedder("purr", "bark"), c, smallOpts())
	ix := buildPetIndex(t, e)

	ans, err := e.Ask(context.Background(), ix, "how do cat and dog sounds differ?", StrategyDecomposition)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.callCount() != 5 {
		t.Fatalf("made %d provider calls, want transform + 3 sub-answers + synthesis", c.callCount())
	}
	// The second sub-question sees the first sub-answer as leading context.
	if !strings.Contains(c.prompt(2), "Cats purr from contentment.") {
		t.Error("first sub-answer missing from second sub-question prompt")
	}
	// The final synthesis works from sub-answers, not raw chunks.
	final := c.prompt(4)
	if !strings.Contains(final, "Dogs bark to alert and greet.") {
		t.Error("sub-answers missing from final synthesis prompt")
	}
	if ans.Text != "Cats purr out of contentment while dogs bark to alert; the sounds differ in mechanism." {
		t.Fatalf("got %q", ans.Text)
	}
	if len(ans.Sources) == 0 {
		t.Error("decomposition must still report chunk sources")
	}
}

func TestAskStepbackOriginalTakesPrecedence(t *testing.T) {
	c := &fakeCompleter{responses: []string{
		"What sounds do cats make?",
		"They purr.",
	}}
	e := NewEngine(newFakeEmbedder("purr", "bark"), c, smallOpts())
	ix := buildPetIndex(t, e)

	ans, err := e.Ask(context.Background(), ix, "why do cats purr?", StrategyStepback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Strategy != StrategyStepback || ans.Text != "They purr." {
		t.Fatalf("bad answer: %+v", ans)
	}
}

func TestAskHyde(t *testing.T) {
	c := &fakeCompleter{responses: []string{
		"Cats purr through rapid vibration of the larynx muscles.",
		"The larynx vibrates rapidly.",
	}}
	e := NewEngine(newFakeEmbedder("purr", "larynx"), c, smallOpts())
	ix := buildPetIndex(t, e)

	ans, err := e.Ask(context.Background(), ix, "what produces a purr?", StrategyHyDE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.callCount() != 2 {
		t.Errorf("made %d provider calls, want passage + synthesis", c.callCount())
	}
	if ans.Text != "The larynx vibrates rapidly." {
		t.Fatalf("got %q", ans.Text)
	}
}

func TestAskMapsDeadlineToProviderTimeout(t *testing.T) {
	c := &fakeCompleter{err: context.DeadlineExceeded}
	e := NewEngine(newFakeEmbedder("purr"), c, smallOpts())
	ix := buildPetIndex(t, e)

	_, err := e.Ask(context.Background(), ix, "why do cats purr?", StrategyBasic)
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("got %v, want ErrProviderTimeout", err)
	}
}

func TestAskDegradedTransformStillAnswers(t *testing.T) {
	c := &fakeCompleter{responses: []string{
		"only one variant",
		"Still answered.",
	}}
	e := NewEngine(newFakeEmbedder("purr", "bark"), c, smallOpts())
	ix := buildPetIndex(t, e)

	ans, err := e.Ask(context.Background(), ix, "why do cats purr?", StrategyMultiQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "Still answered." {
		t.Fatalf("got %q", ans.Text)
	}
	if len(ans.Warnings) != 1 {
		t.Fatalf("got %d warnings, want the degradation warning", len(ans.Warnings))
	}
}
