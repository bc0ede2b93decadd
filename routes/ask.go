package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rag-docqa-platform/internal/ai"
	"rag-docqa-platform/internal/logger"
	"rag-docqa-platform/internal/rag"
	"rag-docqa-platform/middleware"
	"rag-docqa-platform/models"
	"rag-docqa-platform/services"
	"rag-docqa-platform/utils"
)

func SetupAskRoutes(router *gin.Engine, deps *Deps, authMW *middleware.AuthMiddleware) {
	group := router.Group("/")
	group.Use(authMW.RequireAuth())

	group.POST("/ask", handleAsk(deps))
	group.GET("/quota", handleQuota(deps))
	group.GET("/history", handleHistory(deps))
	group.GET("/history/export", handleHistoryExport(deps))
}

func handleQuota(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, err := ai.AskQuotaRemaining(c.Request.Context(), deps.DB, middleware.GetUserID(c), deps.Cfg.DailyAskLimit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to check quota", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"daily_limit": deps.Cfg.DailyAskLimit,
			"remaining":   remaining,
		})
	}
}

func handleAsk(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		strategy, err := rag.ParseStrategy(req.Strategy)
		if err != nil {
			utils.RespondWithBadRequest(c, "Unknown strategy", gin.H{"strategy": req.Strategy})
			return
		}

		userID := middleware.GetUserID(c)
		if err := ai.ConsumeAskQuota(c.Request.Context(), deps.DB, userID, deps.Cfg.DailyAskLimit); err != nil {
			if errors.Is(err, ai.ErrQuotaExceeded) {
				utils.RespondWithError(c, http.StatusTooManyRequests, "quota_exceeded", "Daily question limit reached", nil)
				return
			}
			utils.RespondWithInternalError(c, "Failed to check quota", nil)
			return
		}

		sid := sessionID(c)
		session := deps.Registry.Get(sid)
		if session.Index() == nil {
			// The in-memory index may have been reaped or lost on restart.
			// Rebuild from the stored document when one is ready.
			if err := restoreSession(c.Request.Context(), deps, sid, session); err != nil {
				deps.Metrics.RecordAsk(time.Since(start).Seconds(), string(strategy), "no_index")
				respondAskError(c, err)
				return
			}
		}

		askCtx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(deps.Cfg.AskTimeoutSeconds)*time.Second)
		defer cancel()

		answer, err := session.Ask(askCtx, deps.Engine, req.Question, strategy)
		if err != nil {
			deps.Metrics.RecordAsk(time.Since(start).Seconds(), string(strategy), "failed")
			respondAskError(c, err)
			return
		}

		took := time.Since(start)
		deps.Metrics.RecordAsk(took.Seconds(), string(strategy), "ok")

		if objID, idErr := primitive.ObjectIDFromHex(userID); idErr == nil {
			documentID := ""
			if ix := session.Index(); ix != nil {
				documentID = ix.DocumentID()
			}
			deps.History.Record(c.Request.Context(), sid, documentID, objID, req.Question, answer, took)
		}

		c.JSON(http.StatusOK, models.AskResponse{
			Answer:    answer.Text,
			Strategy:  string(answer.Strategy),
			Sources:   answerSources(answer),
			Warnings:  answer.Warnings,
			Timestamp: time.Now(),
		})
	}
}

// restoreSession rebuilds a session's index from its persisted document.
func restoreSession(ctx context.Context, deps *Deps, sid string, session *rag.Session) error {
	doc, err := deps.Documents.BySession(ctx, sid)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return rag.ErrNoActiveIndex
		}
		return err
	}
	if doc.Status != models.DocumentStatusReady {
		return rag.ErrNoActiveIndex
	}
	text, err := deps.Documents.Text(doc)
	if err != nil {
		return err
	}

	logger.Info("restoring session index", "session_id", sid, "document_id", doc.DocumentID)
	_, err = session.Ingest(ctx, deps.Engine, doc.DocumentID, text)
	return err
}

func respondAskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rag.ErrInvalidArgument):
		utils.RespondWithBadRequest(c, "Question must not be empty", nil)
	case errors.Is(err, rag.ErrNoActiveIndex):
		utils.RespondWithNotFound(c, "No document uploaded for this session")
	case errors.Is(err, rag.ErrIndexBusy):
		utils.RespondWithConflict(c, "index_busy", "Session is busy, try again shortly")
	case errors.Is(err, rag.ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		utils.RespondWithTimeout(c, "The question took too long to answer")
	case errors.Is(err, rag.ErrEmbeddingProvider), errors.Is(err, rag.ErrProvider):
		utils.RespondWithError(c, http.StatusBadGateway, "provider_failed", "AI provider unavailable", nil)
	default:
		utils.RespondWithInternalError(c, "Failed to answer question", nil)
	}
}

func answerSources(answer *rag.Answer) []models.AnswerSource {
	if len(answer.Sources) == 0 {
		return nil
	}
	out := make([]models.AnswerSource, len(answer.Sources))
	for i, src := range answer.Sources {
		out[i] = models.AnswerSource{
			ChunkID:  src.ChunkID,
			Position: src.Position,
			Excerpt:  src.Excerpt,
			Score:    src.Score,
		}
	}
	return out
}

func handleHistory(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid user")
			return
		}

		conversations, err := deps.History.List(c.Request.Context(), sessionID(c), userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load history", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id":    sessionID(c),
			"conversations": conversations,
		})
	}
}

func handleHistoryExport(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid user")
			return
		}

		sid := sessionID(c)
		conversations, err := deps.History.List(c.Request.Context(), sid, userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load history", nil)
			return
		}
		if len(conversations) == 0 {
			utils.RespondWithNotFound(c, "No history for this session")
			return
		}

		switch c.DefaultQuery("format", "xlsx") {
		case "json":
			filename := fmt.Sprintf("qa-history-%s.json", time.Now().Format("2006-01-02"))
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			c.JSON(http.StatusOK, gin.H{
				"session_id":    sid,
				"exported_at":   time.Now(),
				"total":         len(conversations),
				"conversations": conversations,
			})
			return
		case "xlsx":
		default:
			utils.RespondWithBadRequest(c, "Unsupported export format", gin.H{"format": c.Query("format")})
			return
		}

		buf, err := services.ExportHistoryExcel(sid, conversations)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build export", nil)
			return
		}

		filename := fmt.Sprintf("qa-history-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}
