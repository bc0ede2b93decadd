package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rag-docqa-platform/models"
	"rag-docqa-platform/utils"
)

// DocumentService persists ingested documents so a session's index can be
// rebuilt after a restart or a reap. Text is stored compressed.
type DocumentService struct {
	col *mongo.Collection
}

func NewDocumentService(db *mongo.Database) *DocumentService {
	return &DocumentService{col: db.Collection("documents")}
}

// Save stores the document record, replacing any earlier document for the
// same session. One session holds exactly one active document.
func (s *DocumentService) Save(ctx context.Context, doc *models.Document, text string) error {
	compressed, algo, err := utils.CompressText(text)
	if err != nil {
		return err
	}
	doc.Compressed = compressed
	doc.Compression = string(algo)
	now := time.Now()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	doc.UpdatedAt = now

	opCtx, cancel := utils.WithLongTimeout(ctx)
	defer cancel()

	// Drop the previous document for this session before inserting.
	if _, err := s.col.DeleteMany(opCtx, bson.M{"session_id": doc.SessionID, "document_id": bson.M{"$ne": doc.DocumentID}}); err != nil {
		return err
	}
	_, err = s.col.UpdateOne(opCtx,
		bson.M{"document_id": doc.DocumentID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *DocumentService) UpdateStatus(ctx context.Context, documentID, status, errMsg string, chunkCount int) error {
	opCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	set := bson.M{"status": status, "updated_at": time.Now()}
	if errMsg != "" {
		set["error"] = errMsg
	}
	if chunkCount > 0 {
		set["chunk_count"] = chunkCount
	}
	_, err := s.col.UpdateOne(opCtx, bson.M{"document_id": documentID}, bson.M{"$set": set})
	return err
}

// BySession returns the active document for a session, if any.
func (s *DocumentService) BySession(ctx context.Context, sessionID string) (*models.Document, error) {
	opCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	var doc models.Document
	err := s.col.FindOne(opCtx, bson.M{"session_id": sessionID},
		options.FindOne().SetSort(bson.M{"uploaded_at": -1})).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentService) ByDocumentID(ctx context.Context, documentID string) (*models.Document, error) {
	opCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	var doc models.Document
	if err := s.col.FindOne(opCtx, bson.M{"document_id": documentID}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Text decompresses the stored document text.
func (s *DocumentService) Text(doc *models.Document) (string, error) {
	return utils.DecompressText(doc.Compressed, utils.CompressionAlgorithm(doc.Compression))
}

func (s *DocumentService) DeleteBySession(ctx context.Context, sessionID string) error {
	opCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	_, err := s.col.DeleteMany(opCtx, bson.M{"session_id": sessionID})
	return err
}

// ListByUser returns the user's documents, newest first.
func (s *DocumentService) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Document, error) {
	opCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	cursor, err := s.col.Find(opCtx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.M{"uploaded_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(opCtx)

	var docs []models.Document
	if err := cursor.All(opCtx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
