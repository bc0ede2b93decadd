package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	genai "github.com/google/generative-ai-go/genai"
)

// The batch endpoint caps the number of contents per request.
const embedBatchSize = 100

// EmbedTexts embeds the given texts with the configured embedding model,
// batching requests and preserving input order.
func (gc *GeminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed_texts")
	defer span.End()

	span.SetAttributes(
		attribute.Int("gemini.embed_count", len(texts)),
		attribute.String("gemini.model", gc.embeddingModel),
	)

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := gc.embedBatch(ctx, texts[offset:end])
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return nil, err
		}
		out = append(out, vectors...)
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return out, nil
}

func (gc *GeminiClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	estimated := 0
	for _, t := range texts {
		estimated += estimateTokens(t)
	}
	if !gc.tokenCounter.CanConsume(estimated, 1) {
		return nil, errors.New("rate limit exceeded: wait before retry")
	}
	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.EmbeddingModel(gc.embeddingModel)
		batch := model.NewBatch()
		for _, t := range texts {
			batch = batch.AddContent(genai.Text(t))
		}
		resp, err := model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		gc.tokenCounter.RecordUsage(estimated, 1)
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}

	resp := result.(*genai.BatchEmbedContentsResponse)
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
