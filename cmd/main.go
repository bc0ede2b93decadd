package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"rag-docqa-platform/internal/ai"
	"rag-docqa-platform/internal/config"
	"rag-docqa-platform/internal/logger"
	"rag-docqa-platform/internal/rag"
	"rag-docqa-platform/internal/telemetry"
	"rag-docqa-platform/middleware"
	"rag-docqa-platform/routes"
	"rag-docqa-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("rag-docqa-platform", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

	geminiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiTier, cfg.GeminiModel, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	engine := rag.NewEngine(geminiClient, geminiClient, rag.Options{
		ChunkSize:          cfg.ChunkSize,
		ChunkOverlap:       cfg.ChunkOverlap,
		TopK:               cfg.TopK,
		MultiQueryCount:    cfg.MultiQueryCount,
		FusionCount:        cfg.FusionCount,
		DecompositionCount: cfg.DecompositionCount,
		MaxContextChars:    cfg.MaxContextChars,
		SourceLimit:        cfg.SourceLimit,
		SourceExcerptChars: cfg.SourceExcerptChars,
	})
	registry := rag.NewRegistry()

	documents := services.NewDocumentService(db)
	history := services.NewHistoryService(db, cfg.HistoryLimit)

	cleanup := services.NewCleanupService(registry,
		time.Duration(cfg.SessionMaxIdleMinutes)*time.Minute,
		time.Duration(cfg.SessionReapIntervalMin)*time.Minute)
	go cleanup.Start()
	defer cleanup.Stop()

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(middleware.EnrichTrace())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authMW := middleware.NewAuthMiddleware(cfg, rdb)
	deps := &routes.Deps{
		Cfg:       cfg,
		DB:        db,
		Engine:    engine,
		Registry:  registry,
		Documents: documents,
		History:   history,
		Metrics:   metrics,
		Queue:     queueClient,
	}

	routes.SetupAuthRoutes(router, cfg, mongoClient, rdb)
	routes.SetupDocumentRoutes(router, deps, authMW)
	routes.SetupAskRoutes(router, deps, authMW)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
