package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestEngine(c *fakeCompleter) *Engine {
	return NewEngine(newFakeEmbedder("cat", "dog"), c, DefaultOptions())
}

func TestTransformBasicIsIdentity(t *testing.T) {
	c := &fakeCompleter{}
	e := newTestEngine(c)
	subs, warning, err := e.Transform(context.Background(), "do cats purr?", StrategyBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %q", warning)
	}
	if len(subs) != 1 || subs[0].Text != "do cats purr?" {
		t.Fatalf("got %+v, want the original question", subs)
	}
	if c.callCount() != 0 {
		t.Errorf("basic strategy called the provider %d times", c.callCount())
	}
}

func TestTransformMultiQueryStripsNumbering(t *testing.T) {
	c := &fakeCompleter{responses: []string{
		"1. How do cats purr?\n2) Why do cats purr?\n- What makes cats purr?\n* When do cats purr?\nDo all cats purr?\nextra line beyond the count",
	}}
	e := newTestEngine(c)
	subs, warning, err := e.Transform(context.Background(), "do cats purr?", StrategyMultiQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %q", warning)
	}
	if len(subs) != 5 {
		t.Fatalf("got %d variants, want 5", len(subs))
	}
	want := []string{
		"How do cats purr?",
		"Why do cats purr?",
		"What makes cats purr?",
		"When do cats purr?",
		"Do all cats purr?",
	}
	for i, w := range want {
		if subs[i].Text != w {
			t.Errorf("variant %d: got %q, want %q", i, subs[i].Text, w)
		}
		if subs[i].Origin != StrategyMultiQuery || subs[i].Ordinal != i {
			t.Errorf("variant %d has wrong metadata: %+v", i, subs[i])
		}
	}
}

func TestTransformShortfallDegrades(t *testing.T) {
	c := &fakeCompleter{responses: []string{"only one\n\nand two"}}
	e := newTestEngine(c)
	subs, warning, err := e.Transform(context.Background(), "q", StrategyMultiQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d variants, want the 2 the provider returned", len(subs))
	}
	if warning == "" {
		t.Error("expected a degraded warning")
	}
}

func TestTransformFallsBackOnProviderError(t *testing.T) {
	c := &fakeCompleter{err: errors.New("overloaded")}
	e := newTestEngine(c)
	subs, warning, err := e.Transform(context.Background(), "the question", StrategyFusion)
	if err != nil {
		t.Fatalf("generation failure must not fail the ask: %v", err)
	}
	if len(subs) != 1 || subs[0].Text != "the question" {
		t.Fatalf("got %+v, want identity fallback", subs)
	}
	if warning == "" {
		t.Error("expected a fallback warning")
	}
}

func TestTransformStepbackKeepsOriginalFirst(t *testing.T) {
	c := &fakeCompleter{responses: []string{"What are the general habits of cats?"}}
	e := newTestEngine(c)
	subs, warning, err := e.Transform(context.Background(), "why does my cat knead blankets?", StrategyStepback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %q", warning)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d sub-queries, want 2", len(subs))
	}
	if subs[0].Text != "why does my cat knead blankets?" {
		t.Errorf("original question must come first, got %q", subs[0].Text)
	}
	if subs[1].Text != "What are the general habits of cats?" {
		t.Errorf("got %q as the broader question", subs[1].Text)
	}
}

func TestTransformHyDEKeepsPassageWhole(t *testing.T) {
	passage := "Cats purr by vibrating their vocal folds.\nThe sound often signals contentment."
	c := &fakeCompleter{responses: []string{passage + "\n"}}
	e := newTestEngine(c)
	subs, warning, err := e.Transform(context.Background(), "how do cats purr?", StrategyHyDE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %q", warning)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d sub-queries, want 1", len(subs))
	}
	if !strings.Contains(subs[0].Text, "\n") {
		t.Errorf("hypothetical passage was split: %q", subs[0].Text)
	}
	if subs[0].Text != passage {
		t.Errorf("got %q, want the whole passage", subs[0].Text)
	}
}

func TestTransformUnknownStrategy(t *testing.T) {
	e := newTestEngine(&fakeCompleter{})
	_, _, err := e.Transform(context.Background(), "q", Strategy("psychic"))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}

func TestParseStrategy(t *testing.T) {
	got, err := ParseStrategy("")
	if err != nil || got != StrategyBasic {
		t.Fatalf("empty: got %v, %v", got, err)
	}
	got, err = ParseStrategy("fusion")
	if err != nil || got != StrategyFusion {
		t.Fatalf("fusion: got %v, %v", got, err)
	}
	if _, err := ParseStrategy("psychic"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unknown: got %v, want ErrInvalidArgument", err)
	}
}
