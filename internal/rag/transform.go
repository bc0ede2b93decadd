package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Completer issues one completion call against the external language model.
// It is used both for query-variant generation and answer synthesis.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SubQuery is one generated variant, decomposed sub-question or hypothetical
// passage, tagged with its origin strategy and an ordinal for tie-break order.
type SubQuery struct {
	Text    string
	Origin  Strategy
	Ordinal int
}

const (
	multiQueryPrompt = `Generate %d different versions of the following question to retrieve
relevant passages from a document. Cover different phrasings and angles.
Return exactly %d questions, one per line, with no numbering or commentary.

Question: %s`

	fusionPrompt = `Generate %d search queries related to the following question, suitable
for retrieving supporting passages from a document. Return exactly %d
queries, one per line, with no numbering or commentary.

Question: %s`

	decompositionPrompt = `Break the following question into %d simpler sub-questions that can be
answered independently and together cover the whole problem. Return exactly
%d sub-questions, one per line, with no numbering or commentary.

Question: %s`

	stepbackPrompt = `Rewrite the following question as a single broader, more generic question
about the underlying topic. Return only the rewritten question on one line.

Question: %s`

	hydePrompt = `Write a short passage that could plausibly appear in a document and would
answer the following question. Write only the passage, no preamble.

Question: %s`
)

// Transform produces the sub-queries actually used for retrieval for the
// given strategy. A provider shortfall is degraded-but-valid: whatever came
// back is used. If nothing usable comes back the question itself is used
// (identity fallback) and the returned warning says so; generation problems
// never fail the ask on their own.
func (e *Engine) Transform(ctx context.Context, question string, strategy Strategy) ([]SubQuery, string, error) {
	switch strategy {
	case StrategyBasic:
		return []SubQuery{{Text: question, Origin: strategy}}, "", nil

	case StrategyMultiQuery:
		return e.generateVariants(ctx, question, strategy, e.opts.MultiQueryCount,
			fmt.Sprintf(multiQueryPrompt, e.opts.MultiQueryCount, e.opts.MultiQueryCount, question))

	case StrategyFusion:
		return e.generateVariants(ctx, question, strategy, e.opts.FusionCount,
			fmt.Sprintf(fusionPrompt, e.opts.FusionCount, e.opts.FusionCount, question))

	case StrategyDecomposition:
		return e.generateVariants(ctx, question, strategy, e.opts.DecompositionCount,
			fmt.Sprintf(decompositionPrompt, e.opts.DecompositionCount, e.opts.DecompositionCount, question))

	case StrategyStepback:
		// The original question always rides along; only the broader
		// reformulation is generated.
		subs := []SubQuery{{Text: question, Origin: strategy, Ordinal: 0}}
		generated, warning, err := e.generateVariants(ctx, question, strategy, 1,
			fmt.Sprintf(stepbackPrompt, question))
		if err != nil {
			return nil, "", err
		}
		if warning != "" {
			return subs, warning, nil
		}
		generated[0].Ordinal = 1
		return append(subs, generated[0]), "", nil

	case StrategyHyDE:
		// The hypothetical passage is embedded whole; no line splitting.
		raw, err := e.completer.Complete(ctx, fmt.Sprintf(hydePrompt, question))
		if err != nil || strings.TrimSpace(raw) == "" {
			if err != nil {
				log.Printf("query transform (%s) failed, falling back to identity: %v", strategy, err)
			}
			return identityFallback(question, strategy), warnFallback(strategy), nil
		}
		return []SubQuery{{Text: strings.TrimSpace(raw), Origin: strategy}}, "", nil

	default:
		return nil, "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidArgument, strategy)
	}
}

// generateVariants runs one constrained generation call and parses its lines.
func (e *Engine) generateVariants(ctx context.Context, question string, strategy Strategy, want int, prompt string) ([]SubQuery, string, error) {
	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("query transform (%s) failed, falling back to identity: %v", strategy, err)
		return identityFallback(question, strategy), warnFallback(strategy), nil
	}

	lines := parseLines(raw, want)
	if len(lines) == 0 {
		log.Printf("query transform (%s) returned no usable variants, falling back to identity", strategy)
		return identityFallback(question, strategy), warnFallback(strategy), nil
	}

	subs := make([]SubQuery, len(lines))
	for i, line := range lines {
		subs[i] = SubQuery{Text: line, Origin: strategy, Ordinal: i}
	}

	warning := ""
	if len(lines) < want {
		// Degraded but valid: proceed with what the provider returned.
		warning = fmt.Sprintf("transformation degraded: got %d of %d variants for %s", len(lines), want, strategy)
		log.Print(warning)
	}
	return subs, warning, nil
}

func identityFallback(question string, strategy Strategy) []SubQuery {
	return []SubQuery{{Text: question, Origin: strategy}}
}

func warnFallback(strategy Strategy) string {
	return fmt.Sprintf("transformation degraded: %s fell back to the original question", strategy)
}

// parseLines extracts up to want non-empty lines, stripping the numbering
// and bullets models add despite instructions. Never pads.
func parseLines(raw string, want int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = trimNumbering(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == want {
			break
		}
	}
	return out
}

func trimNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
