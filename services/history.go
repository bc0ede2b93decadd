package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rag-docqa-platform/internal/logger"
	"rag-docqa-platform/internal/rag"
	"rag-docqa-platform/models"
	"rag-docqa-platform/utils"
)

// HistoryService records question/answer exchanges per session.
type HistoryService struct {
	col   *mongo.Collection
	limit int
}

func NewHistoryService(db *mongo.Database, limit int) *HistoryService {
	if limit <= 0 {
		limit = 50
	}
	return &HistoryService{col: db.Collection("conversations"), limit: limit}
}

// Record stores one exchange. Failures are logged, not surfaced: history is
// best effort and must not fail an ask that already produced an answer.
func (s *HistoryService) Record(ctx context.Context, sessionID, documentID string, userID primitive.ObjectID, question string, answer *rag.Answer, took time.Duration) {
	conv := models.Conversation{
		SessionID:  sessionID,
		UserID:     userID,
		DocumentID: documentID,
		Question:   question,
		Answer:     answer.Text,
		Strategy:   string(answer.Strategy),
		Sources:    sourcesToModel(answer.Sources),
		Warnings:   answer.Warnings,
		DurationMS: took.Milliseconds(),
		AskedAt:    time.Now(),
	}

	opCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	if _, err := s.col.InsertOne(opCtx, conv); err != nil {
		logger.Error("failed to record conversation", "session_id", sessionID, "error", err)
	}
}

// List returns the most recent exchanges for a session, newest first.
func (s *HistoryService) List(ctx context.Context, sessionID string, userID primitive.ObjectID) ([]models.Conversation, error) {
	opCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	cursor, err := s.col.Find(opCtx,
		bson.M{"session_id": sessionID, "user_id": userID},
		options.Find().SetSort(bson.M{"asked_at": -1}).SetLimit(int64(s.limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(opCtx)

	var conversations []models.Conversation
	if err := cursor.All(opCtx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// ClearSession drops a session's history together with its document.
func (s *HistoryService) ClearSession(ctx context.Context, sessionID string) error {
	opCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	_, err := s.col.DeleteMany(opCtx, bson.M{"session_id": sessionID})
	return err
}

func sourcesToModel(sources []rag.Source) []models.AnswerSource {
	if len(sources) == 0 {
		return nil
	}
	out := make([]models.AnswerSource, len(sources))
	for i, src := range sources {
		out[i] = models.AnswerSource{
			ChunkID:  src.ChunkID,
			Position: src.Position,
			Excerpt:  src.Excerpt,
			Score:    src.Score,
		}
	}
	return out
}
