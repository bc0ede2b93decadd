package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document statuses for async ingestion.
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

// Document is the stored record of an ingested document. The raw text is
// kept compressed so a session's index can be rebuilt after a restart.
type Document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID  string             `bson:"document_id" json:"document_id"`
	SessionID   string             `bson:"session_id" json:"session_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title       string             `bson:"title" json:"title"`
	SourceType  string             `bson:"source_type" json:"source_type"` // file, url, text
	SourceName  string             `bson:"source_name,omitempty" json:"source_name,omitempty"`
	WordCount   int                `bson:"word_count" json:"word_count"`
	ChunkCount  int                `bson:"chunk_count" json:"chunk_count"`
	Status      string             `bson:"status" json:"status"`
	Error       string             `bson:"error,omitempty" json:"error,omitempty"`
	Compressed  []byte             `bson:"compressed_text" json:"-"`
	Compression string             `bson:"compression" json:"-"`
	UploadedAt  time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

type UploadURLRequest struct {
	URL string `json:"url" binding:"required,max=2048"`
}

type UploadTextRequest struct {
	Title string `json:"title" binding:"omitempty,max=200"`
	Text  string `json:"text" binding:"required"`
}

type UploadResponse struct {
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id"`
	Title      string `json:"title"`
	WordCount  int    `json:"word_count"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
}

type DocumentStatusResponse struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	WordCount  int       `json:"word_count"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `json:"error,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}
