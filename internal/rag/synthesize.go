package rag

import (
	"context"
	"fmt"
	"strings"
)

// Source is a provenance excerpt returned alongside an answer.
type Source struct {
	ChunkID  string  `json:"chunk_id"`
	Position int     `json:"position"`
	Excerpt  string  `json:"excerpt"`
	Score    float64 `json:"score"`
}

// Answer is the final result of one ask.
type Answer struct {
	Text     string   `json:"answer"`
	Strategy Strategy `json:"strategy"`
	Sources  []Source `json:"sources"`
	Warnings []string `json:"warnings,omitempty"`
}

const noInfoAnswer = "I could not find relevant information in the document to answer this question."

const synthesisPrompt = `Answer the question using only the context below. If the context does not
contain the answer, say you could not find it in the document.

%sQuestion: %s

Answer:`

const subAnswerPrompt = `Answer the question using only the context below. Be concise.

%sQuestion: %s

Answer:`

// synthesize produces the final answer text from the fused evidence. When
// there is no evidence at all it answers without calling the provider.
func (e *Engine) synthesize(ctx context.Context, question string, evidence []ScoredChunk) (string, error) {
	if len(evidence) == 0 {
		return noInfoAnswer, nil
	}
	prompt := fmt.Sprintf(synthesisPrompt, contextBlock(evidence, e.opts.MaxContextChars), question)
	text, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// answerSub answers one decomposition sub-question. Earlier sub-answers are
// prepended to the retrieved context so later sub-questions can build on them.
func (e *Engine) answerSub(ctx context.Context, sub string, evidence []ScoredChunk, prior []string) (string, error) {
	var b strings.Builder
	for i, p := range prior {
		fmt.Fprintf(&b, "Context %d:\n%s\n\n", i+1, p)
	}
	b.WriteString(contextBlockFrom(evidence, e.opts.MaxContextChars, len(prior)+1))
	text, err := e.completer.Complete(ctx, fmt.Sprintf(subAnswerPrompt, b.String(), sub))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// synthesizeFromSubAnswers composes the final decomposition answer out of the
// numbered sub-answers rather than raw chunks.
func (e *Engine) synthesizeFromSubAnswers(ctx context.Context, question string, subs []SubQuery, subAnswers []string) (string, error) {
	var b strings.Builder
	for i := range subAnswers {
		fmt.Fprintf(&b, "Context %d:\n%s\n%s\n\n", i+1, subs[i].Text, subAnswers[i])
	}
	text, err := e.completer.Complete(ctx, fmt.Sprintf(synthesisPrompt, b.String(), question))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func contextBlock(evidence []ScoredChunk, maxChars int) string {
	return contextBlockFrom(evidence, maxChars, 1)
}

// contextBlockFrom renders numbered context sections, stopping before the
// chunk that would push the block past maxChars. At least one chunk is
// always included.
func contextBlockFrom(evidence []ScoredChunk, maxChars, startAt int) string {
	var b strings.Builder
	for i, sc := range evidence {
		section := fmt.Sprintf("Context %d:\n%s\n\n", startAt+i, sc.Chunk.Text)
		if i > 0 && maxChars > 0 && b.Len()+len(section) > maxChars {
			break
		}
		b.WriteString(section)
	}
	return b.String()
}

// sourcesFrom extracts provenance from the top fused chunks, excerpts
// truncated at a rune boundary.
func sourcesFrom(evidence []ScoredChunk, limit, excerptLen int) []Source {
	if len(evidence) < limit {
		limit = len(evidence)
	}
	out := make([]Source, limit)
	for i := 0; i < limit; i++ {
		sc := evidence[i]
		out[i] = Source{
			ChunkID:  sc.Chunk.ID,
			Position: sc.Chunk.Position,
			Excerpt:  truncateRunes(sc.Chunk.Text, excerptLen),
			Score:    sc.Score,
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
