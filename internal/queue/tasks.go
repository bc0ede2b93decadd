package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"rag-docqa-platform/internal/logger"
	"rag-docqa-platform/internal/rag"
	"rag-docqa-platform/models"
	"rag-docqa-platform/services"
)

const TaskIngestDocument = "document:ingest"

type IngestPayload struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
}

// NewIngestTask enqueues indexing for a document already persisted by the
// upload handler. The worker reads the stored text back, so the payload
// stays small.
func NewIngestTask(sessionID, documentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		SessionID:  sessionID,
		DocumentID: documentID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

type TaskProcessor struct {
	engine    *rag.Engine
	registry  *rag.Registry
	documents *services.DocumentService
}

func NewTaskProcessor(engine *rag.Engine, registry *rag.Registry, documents *services.DocumentService) *TaskProcessor {
	return &TaskProcessor{
		engine:    engine,
		registry:  registry,
		documents: documents,
	}
}

// ProcessIngest chunks and embeds the stored document, then installs the
// resulting index on the session.
func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("processing document ingest", "session_id", payload.SessionID, "document_id", payload.DocumentID)

	doc, err := p.documents.ByDocumentID(ctx, payload.DocumentID)
	if err != nil {
		return err
	}
	text, err := p.documents.Text(doc)
	if err != nil {
		p.documents.UpdateStatus(ctx, payload.DocumentID, models.DocumentStatusFailed, "stored text unreadable", 0)
		return fmt.Errorf("decompress failed: %v: %w", err, asynq.SkipRetry)
	}

	p.documents.UpdateStatus(ctx, payload.DocumentID, models.DocumentStatusProcessing, "", 0)

	session := p.registry.Get(payload.SessionID)
	index, err := session.Ingest(ctx, p.engine, payload.DocumentID, text)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyDocument) {
			p.documents.UpdateStatus(ctx, payload.DocumentID, models.DocumentStatusFailed, err.Error(), 0)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if errors.Is(err, rag.ErrIndexBusy) {
			// Another build or an in-flight ask holds the session. Retry.
			return err
		}
		p.documents.UpdateStatus(ctx, payload.DocumentID, models.DocumentStatusFailed, err.Error(), 0)
		return err
	}

	if err := p.documents.UpdateStatus(ctx, payload.DocumentID, models.DocumentStatusReady, "", index.Len()); err != nil {
		logger.Error("failed to mark document ready", "document_id", payload.DocumentID, "error", err)
	}

	logger.Info("document ingest complete", "document_id", payload.DocumentID, "chunks", index.Len())
	return nil
}
