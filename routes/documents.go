package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rag-docqa-platform/internal/config"
	"rag-docqa-platform/internal/extract"
	"rag-docqa-platform/internal/logger"
	"rag-docqa-platform/internal/queue"
	"rag-docqa-platform/internal/rag"
	"rag-docqa-platform/internal/telemetry"
	"rag-docqa-platform/middleware"
	"rag-docqa-platform/models"
	"rag-docqa-platform/services"
	"rag-docqa-platform/utils"
)

// Deps bundles the shared state the document and ask handlers need.
type Deps struct {
	Cfg       *config.Config
	DB        *mongo.Database
	Engine    *rag.Engine
	Registry  *rag.Registry
	Documents *services.DocumentService
	History   *services.HistoryService
	Metrics   *telemetry.Metrics
	Queue     *asynq.Client
}

// sessionID scopes a session to the authenticated user. A client may run
// several independent sessions by setting X-Session-ID.
func sessionID(c *gin.Context) string {
	name := strings.TrimSpace(c.GetHeader("X-Session-ID"))
	if name == "" {
		name = "default"
	}
	return middleware.GetUserID(c) + ":" + name
}

func SetupDocumentRoutes(router *gin.Engine, deps *Deps, authMW *middleware.AuthMiddleware) {
	docs := router.Group("/documents")
	docs.Use(authMW.RequireAuth())

	docs.POST("/upload", handleFileUpload(deps))
	docs.POST("/upload/url", handleURLUpload(deps))
	docs.POST("/upload/text", handleTextUpload(deps))
	docs.POST("/upload/async", handleAsyncFileUpload(deps))
	docs.GET("/status", handleDocumentStatus(deps))
	docs.GET("/status/:id", handleDocumentStatusByID(deps))
	docs.GET("", handleListDocuments(deps))
	docs.DELETE("", handleClearSession(deps))
}

func handleFileUpload(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file provided", nil)
			return
		}
		defer file.Close()

		if header.Size > deps.Cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large", "File size exceeds maximum limit", nil)
			return
		}

		content, err := io.ReadAll(io.LimitReader(file, deps.Cfg.MaxFileSize))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read file", nil)
			return
		}

		result, err := extract.FromFile(header.Filename, content)
		if err != nil {
			deps.Metrics.RecordIngest(time.Since(start).Seconds(), "file", "failed")
			utils.RespondWithBadRequest(c, "Could not extract text from file", gin.H{"error": err.Error()})
			return
		}

		ingestExtracted(c, deps, result, "file", header.Filename, start)
	}
}

func handleURLUpload(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.UploadURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		result, err := extract.FromURL(c.Request.Context(), req.URL)
		if err != nil {
			deps.Metrics.RecordIngest(time.Since(start).Seconds(), "url", "failed")
			utils.RespondWithError(c, http.StatusUnprocessableEntity, "fetch_failed", "Could not fetch or parse the page", gin.H{"error": err.Error()})
			return
		}

		ingestExtracted(c, deps, result, "url", req.URL, start)
	}
}

func handleTextUpload(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.UploadTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		title := req.Title
		if title == "" {
			title = "Pasted text"
		}
		result := &extract.Result{
			Text:      req.Text,
			Title:     title,
			WordCount: rag.WordCount(req.Text),
		}

		ingestExtracted(c, deps, result, "text", "", start)
	}
}

// ingestExtracted persists the document, builds the index synchronously and
// answers with the ready document.
func ingestExtracted(c *gin.Context, deps *Deps, result *extract.Result, sourceType, sourceName string, start time.Time) {
	if len(strings.TrimSpace(result.Text)) < deps.Cfg.MinDocumentChars {
		deps.Metrics.RecordIngest(time.Since(start).Seconds(), sourceType, "failed")
		utils.RespondWithBadRequest(c, "Document is too short to index", nil)
		return
	}

	sid := sessionID(c)
	doc, err := persistDocument(c, deps, result, sourceType, sourceName, models.DocumentStatusProcessing)
	if err != nil {
		utils.RespondWithInternalError(c, "Failed to store document", nil)
		return
	}

	session := deps.Registry.Get(sid)
	index, err := session.Ingest(c.Request.Context(), deps.Engine, doc.DocumentID, result.Text)
	if err != nil {
		deps.Metrics.RecordIngest(time.Since(start).Seconds(), sourceType, "failed")
		deps.Documents.UpdateStatus(c.Request.Context(), doc.DocumentID, models.DocumentStatusFailed, err.Error(), 0)
		respondIngestError(c, err)
		return
	}

	if err := deps.Documents.UpdateStatus(c.Request.Context(), doc.DocumentID, models.DocumentStatusReady, "", index.Len()); err != nil {
		logger.Error("failed to mark document ready", "document_id", doc.DocumentID, "error", err)
	}
	deps.Metrics.RecordIngest(time.Since(start).Seconds(), sourceType, "ok")

	c.JSON(http.StatusCreated, models.UploadResponse{
		DocumentID: doc.DocumentID,
		SessionID:  sid,
		Title:      result.Title,
		WordCount:  result.WordCount,
		ChunkCount: index.Len(),
		Status:     models.DocumentStatusReady,
	})
}

func handleAsyncFileUpload(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file provided", nil)
			return
		}
		defer file.Close()

		if header.Size > deps.Cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large", "File size exceeds maximum limit", nil)
			return
		}

		content, err := io.ReadAll(io.LimitReader(file, deps.Cfg.MaxFileSize))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read file", nil)
			return
		}

		result, err := extract.FromFile(header.Filename, content)
		if err != nil {
			utils.RespondWithBadRequest(c, "Could not extract text from file", gin.H{"error": err.Error()})
			return
		}
		if len(strings.TrimSpace(result.Text)) < deps.Cfg.MinDocumentChars {
			utils.RespondWithBadRequest(c, "Document is too short to index", nil)
			return
		}

		doc, err := persistDocument(c, deps, result, "file", header.Filename, models.DocumentStatusPending)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to store document", nil)
			return
		}

		task, err := queue.NewIngestTask(doc.SessionID, doc.DocumentID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create processing task", nil)
			return
		}
		info, err := deps.Queue.Enqueue(task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue processing task", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message":     "Document accepted for processing",
			"document_id": doc.DocumentID,
			"session_id":  doc.SessionID,
			"task_id":     info.ID,
			"status":      models.DocumentStatusPending,
			"title":       result.Title,
			"word_count":  result.WordCount,
		})
	}
}

func persistDocument(c *gin.Context, deps *Deps, result *extract.Result, sourceType, sourceName, status string) (*models.Document, error) {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		DocumentID: uuid.NewString(),
		SessionID:  sessionID(c),
		UserID:     userID,
		Title:      result.Title,
		SourceType: sourceType,
		SourceName: sourceName,
		WordCount:  result.WordCount,
		Status:     status,
		UploadedAt: time.Now(),
	}
	if err := deps.Documents.Save(c.Request.Context(), doc, result.Text); err != nil {
		return nil, err
	}
	return doc, nil
}

func respondIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rag.ErrEmptyDocument):
		utils.RespondWithBadRequest(c, "Document has no usable content", nil)
	case errors.Is(err, rag.ErrIndexBusy):
		utils.RespondWithConflict(c, "index_busy", "Session is busy, try again shortly")
	case errors.Is(err, rag.ErrEmbeddingProvider), errors.Is(err, rag.ErrProviderTimeout):
		utils.RespondWithError(c, http.StatusBadGateway, "embedding_failed", "Embedding provider unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded):
		utils.RespondWithTimeout(c, "Indexing timed out")
	default:
		utils.RespondWithInternalError(c, "Failed to index document", nil)
	}
}

func handleDocumentStatus(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := deps.Documents.BySession(c.Request.Context(), sessionID(c))
		if err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "No document uploaded for this session")
				return
			}
			utils.RespondWithInternalError(c, "Failed to retrieve document status", nil)
			return
		}

		c.JSON(http.StatusOK, models.DocumentStatusResponse{
			DocumentID: doc.DocumentID,
			Title:      doc.Title,
			Status:     doc.Status,
			WordCount:  doc.WordCount,
			ChunkCount: doc.ChunkCount,
			Error:      doc.Error,
			UploadedAt: doc.UploadedAt,
		})
	}
}

func handleDocumentStatusByID(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := deps.Documents.ByDocumentID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to retrieve document status", nil)
			return
		}

		// Documents are private to their uploader.
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil || doc.UserID != userID {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}

		c.JSON(http.StatusOK, models.DocumentStatusResponse{
			DocumentID: doc.DocumentID,
			Title:      doc.Title,
			Status:     doc.Status,
			WordCount:  doc.WordCount,
			ChunkCount: doc.ChunkCount,
			Error:      doc.Error,
			UploadedAt: doc.UploadedAt,
		})
	}
}

func handleListDocuments(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid user")
			return
		}

		docs, err := deps.Documents.ListByUser(c.Request.Context(), userID, 100)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}

		out := make([]models.DocumentStatusResponse, len(docs))
		for i, doc := range docs {
			out[i] = models.DocumentStatusResponse{
				DocumentID: doc.DocumentID,
				Title:      doc.Title,
				Status:     doc.Status,
				WordCount:  doc.WordCount,
				ChunkCount: doc.ChunkCount,
				Error:      doc.Error,
				UploadedAt: doc.UploadedAt,
			}
		}
		c.JSON(http.StatusOK, gin.H{"documents": out})
	}
}

func handleClearSession(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)

		if session, ok := deps.Registry.Lookup(sid); ok {
			session.Clear()
			deps.Registry.Remove(sid)
		}
		if err := deps.Documents.DeleteBySession(c.Request.Context(), sid); err != nil {
			utils.RespondWithInternalError(c, "Failed to delete session document", nil)
			return
		}
		if err := deps.History.ClearSession(c.Request.Context(), sid); err != nil {
			utils.RespondWithInternalError(c, "Failed to delete session history", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Session cleared", "session_id": sid})
	}
}
