package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter  metric.Int64Counter
	RequestDuration metric.Float64Histogram
	TokensUsed      metric.Int64Counter
	IngestDuration  metric.Float64Histogram
	AskDuration     metric.Float64Histogram
	AsksByStrategy  metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("rag-docqa-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"document.ingest.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	askDuration, err := meter.Float64Histogram(
		"ask.duration",
		metric.WithDescription("End-to-end ask duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	asksByStrategy, err := meter.Int64Counter(
		"ask.by_strategy",
		metric.WithDescription("Asks grouped by retrieval strategy"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:  requestCounter,
		RequestDuration: requestDuration,
		TokensUsed:      tokensUsed,
		IngestDuration:  ingestDuration,
		AskDuration:     askDuration,
		AsksByStrategy:  asksByStrategy,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngest records document ingestion metrics
func (m *Metrics) RecordIngest(duration float64, sourceType, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("document.source", sourceType),
		attribute.String("document.status", status),
	}

	m.IngestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordAsk records ask pipeline metrics
func (m *Metrics) RecordAsk(duration float64, strategy, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("ask.strategy", strategy),
		attribute.String("ask.status", status),
	}

	m.AskDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
	m.AsksByStrategy.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}
