package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is one question/answer exchange against a session's document.
type Conversation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  string             `bson:"session_id" json:"session_id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	DocumentID string             `bson:"document_id" json:"document_id"`
	Question   string             `bson:"question" json:"question"`
	Answer     string             `bson:"answer" json:"answer"`
	Strategy   string             `bson:"strategy" json:"strategy"`
	Sources    []AnswerSource     `bson:"sources,omitempty" json:"sources,omitempty"`
	Warnings   []string           `bson:"warnings,omitempty" json:"warnings,omitempty"`
	DurationMS int64              `bson:"duration_ms" json:"duration_ms"`
	AskedAt    time.Time          `bson:"asked_at" json:"asked_at"`
}

type AnswerSource struct {
	ChunkID  string  `bson:"chunk_id" json:"chunk_id"`
	Position int     `bson:"position" json:"position"`
	Excerpt  string  `bson:"excerpt" json:"excerpt"`
	Score    float64 `bson:"score" json:"score"`
}

type AskRequest struct {
	Question string `json:"question" binding:"required,min=1,max=2000"`
	Strategy string `json:"strategy" binding:"omitempty,oneof=basic multi_query fusion decomposition stepback hyde"`
}

type AskResponse struct {
	Answer    string         `json:"answer"`
	Strategy  string         `json:"strategy"`
	Sources   []AnswerSource `json:"sources,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AskQuota tracks per-user daily usage of the ask endpoint.
type AskQuota struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Day       string             `bson:"day" json:"day"` // YYYY-MM-DD, UTC
	Used      int                `bson:"used" json:"used"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
