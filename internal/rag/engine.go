package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Options holds the tunables of the question-answering pipeline.
type Options struct {
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
	MultiQueryCount    int
	FusionCount        int
	DecompositionCount int
	MaxContextChars    int
	SourceLimit        int
	SourceExcerptChars int
}

// DefaultOptions mirrors the production defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:          1000,
		ChunkOverlap:       200,
		TopK:               4,
		MultiQueryCount:    5,
		FusionCount:        4,
		DecompositionCount: 3,
		MaxContextChars:    12000,
		SourceLimit:        3,
		SourceExcerptChars: 200,
	}
}

// Engine runs the full pipeline for one document index: query
// transformation, retrieval, fusion and answer synthesis.
type Engine struct {
	embedder  Embedder
	completer Completer
	opts      Options
}

func NewEngine(embedder Embedder, completer Completer, opts Options) *Engine {
	return &Engine{embedder: embedder, completer: completer, opts: opts}
}

func (e *Engine) Options() Options { return e.opts }

// BuildIndex chunks the document text and embeds it into a searchable index.
func (e *Engine) BuildIndex(ctx context.Context, documentID, text string) (*Index, error) {
	chunks, err := SplitText(documentID, text, e.opts.ChunkSize, e.opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}
	ix, err := BuildIndex(ctx, e.embedder, documentID, chunks)
	if err != nil {
		return nil, providerErr(err)
	}
	return ix, nil
}

// Ask answers a question against the given index using the named strategy.
// Each ask moves through transformation, retrieval and synthesis; a failure
// in any phase fails the ask, except query transformation which degrades to
// the original question instead.
func (e *Engine) Ask(ctx context.Context, ix *Index, question string, strategy Strategy) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", ErrInvalidArgument)
	}
	if ix == nil {
		return nil, ErrNoActiveIndex
	}

	subs, warning, err := e.Transform(ctx, question, strategy)
	if err != nil {
		return nil, err
	}
	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
	}

	if strategy == StrategyDecomposition && len(subs) > 1 {
		return e.askDecomposed(ctx, ix, question, subs, warnings)
	}

	lists, err := e.retrieveAll(ctx, ix, subs, e.opts.TopK)
	if err != nil {
		return nil, providerErr(fmt.Errorf("retrieving: %w", err))
	}

	var evidence []ScoredChunk
	switch strategy {
	case StrategyFusion:
		evidence = rrfFuse(lists)
	case StrategyStepback:
		evidence = concatDedup(lists)
	default:
		evidence = unionDedup(lists)
	}
	if maxLen := e.maxEvidence(len(lists)); len(evidence) > maxLen {
		evidence = evidence[:maxLen]
	}

	text, err := e.synthesize(ctx, question, evidence)
	if err != nil {
		return nil, providerErr(fmt.Errorf("synthesizing: %w", err))
	}
	return &Answer{
		Text:     text,
		Strategy: strategy,
		Sources:  sourcesFrom(evidence, e.opts.SourceLimit, e.opts.SourceExcerptChars),
		Warnings: warnings,
	}, nil
}

// askDecomposed answers each sub-question in order, feeding earlier
// sub-answers into later ones, then synthesizes the final answer from the
// sub-answers alone. Sources come from the chunks retrieved across all
// sub-questions.
func (e *Engine) askDecomposed(ctx context.Context, ix *Index, question string, subs []SubQuery, warnings []string) (*Answer, error) {
	subAnswers := make([]string, 0, len(subs))
	var allEvidence [][]ScoredChunk
	for _, sub := range subs {
		list, err := ix.Search(ctx, e.embedder, sub.Text, e.opts.TopK)
		if err != nil {
			return nil, providerErr(fmt.Errorf("retrieving for sub-question %d: %w", sub.Ordinal+1, err))
		}
		allEvidence = append(allEvidence, list)
		ans, err := e.answerSub(ctx, sub.Text, list, subAnswers)
		if err != nil {
			return nil, providerErr(fmt.Errorf("answering sub-question %d: %w", sub.Ordinal+1, err))
		}
		subAnswers = append(subAnswers, ans)
	}

	text, err := e.synthesizeFromSubAnswers(ctx, question, subs, subAnswers)
	if err != nil {
		return nil, providerErr(fmt.Errorf("synthesizing: %w", err))
	}
	evidence := unionDedup(allEvidence)
	return &Answer{
		Text:     text,
		Strategy: StrategyDecomposition,
		Sources:  sourcesFrom(evidence, e.opts.SourceLimit, e.opts.SourceExcerptChars),
		Warnings: warnings,
	}, nil
}

// maxEvidence caps fused evidence so a many-variant strategy cannot blow the
// synthesis context far past what a single top-k search would produce.
func (e *Engine) maxEvidence(variantCount int) int {
	if variantCount < 1 {
		variantCount = 1
	}
	return e.opts.TopK * variantCount
}

// providerErr classifies an upstream failure. A context deadline becomes a
// provider timeout so callers can tell slow providers from broken ones.
func providerErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrEmbeddingProvider) ||
		errors.Is(err, ErrProviderTimeout) || errors.Is(err, ErrProvider) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProvider, err)
}
