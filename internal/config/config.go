package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// JWT Token Secrets
	AccessSecret  string
	RefreshSecret string
	BcryptCost    int

	RateLimitReqs   int
	RateLimitWindow int

	// Gemini Configuration
	GeminiAPIKey   string
	GeminiTier     string
	GeminiModel    string
	EmbeddingModel string

	// Document ingestion
	MaxFileSize      int64
	MinDocumentChars int

	// Retrieval pipeline
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
	MultiQueryCount    int
	FusionCount        int
	DecompositionCount int
	MaxContextChars    int
	SourceLimit        int
	SourceExcerptChars int

	// Ask handling
	AskTimeoutSeconds int
	DailyAskLimit     int
	HistoryLimit      int

	// Session lifecycle
	SessionMaxIdleMinutes  int
	SessionReapIntervalMin int

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/rag_docqa"),
		DBName:      getEnv("DB_NAME", "rag_docqa"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// JWT Token Secrets
		AccessSecret:  getEnv("ACCESS_SECRET", ""),
		RefreshSecret: getEnv("REFRESH_SECRET", ""),
		BcryptCost:    getEnvInt("BCRYPT_COST", 12),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		// Gemini
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiTier:     getEnv("GEMINI_TIER", "free"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),

		// Document ingestion
		MaxFileSize:      getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		MinDocumentChars: getEnvInt("MIN_DOCUMENT_CHARS", 50),

		// Retrieval pipeline
		ChunkSize:          getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 200),
		TopK:               getEnvInt("RETRIEVAL_TOP_K", 4),
		MultiQueryCount:    getEnvInt("MULTI_QUERY_COUNT", 5),
		FusionCount:        getEnvInt("FUSION_QUERY_COUNT", 4),
		DecompositionCount: getEnvInt("DECOMPOSITION_COUNT", 3),
		MaxContextChars:    getEnvInt("MAX_CONTEXT_CHARS", 12000),
		SourceLimit:        getEnvInt("SOURCE_LIMIT", 3),
		SourceExcerptChars: getEnvInt("SOURCE_EXCERPT_CHARS", 200),

		// Ask handling
		AskTimeoutSeconds: getEnvInt("ASK_TIMEOUT_SECONDS", 120),
		DailyAskLimit:     getEnvInt("DAILY_ASK_LIMIT", 500),
		HistoryLimit:      getEnvInt("HISTORY_LIMIT", 50),

		// Session lifecycle
		SessionMaxIdleMinutes:  getEnvInt("SESSION_MAX_IDLE_MINUTES", 120),
		SessionReapIntervalMin: getEnvInt("SESSION_REAP_INTERVAL_MINUTES", 10),

		// Tracing
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("ACCESS_SECRET is required - set it in .env file")
	}

	if cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("REFRESH_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
