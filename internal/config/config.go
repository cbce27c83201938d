package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Gemini API
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string
	GeminiRPM      int

	// Pipeline selection: "vector" (pgvector store) or "memory" (lexical)
	PipelineMode         string
	UseExtendedKnowledge bool
	TopK                 int
	RetrievalThreshold   float64
	RelevanceThreshold   float64

	// Chunking
	MaxChunkSize int
	ChunkOverlap int

	// Embedding store (vector mode)
	DatabaseURL      string
	VectorDimensions int
	EmbedBatchSize   int

	// Document sources
	GoogleServiceAccountKey string
	GoogleDriveFolderID     string
	DocumentsDir            string

	// Sessions
	SessionTimeoutMinutes int
	SessionSweepSeconds   int

	// HTTP server
	Port         string
	GinMode      string
	CORSOrigins  []string
	RateLimitRPM int

	// Tracing (disabled when empty)
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiRPM:      getEnvInt("GEMINI_RPM", 10),

		PipelineMode:         getEnv("PIPELINE_MODE", "vector"),
		UseExtendedKnowledge: getEnvBool("USE_EXTENDED_KNOWLEDGE", true),
		TopK:                 getEnvInt("RETRIEVAL_TOP_K", 5),
		RetrievalThreshold:   getEnvFloat64("RETRIEVAL_THRESHOLD", 0.3),
		RelevanceThreshold:   getEnvFloat64("RELEVANCE_THRESHOLD", 0.5),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 32),

		GoogleServiceAccountKey: getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		GoogleDriveFolderID:     getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		DocumentsDir:            getEnv("DOCUMENTS_DIR", "./documents"),

		SessionTimeoutMinutes: getEnvInt("SESSION_TIMEOUT_MINUTES", 5),
		SessionSweepSeconds:   getEnvInt("SESSION_SWEEP_SECONDS", 60),

		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 30),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.PipelineMode != "vector" && cfg.PipelineMode != "memory" {
		return nil, fmt.Errorf("PIPELINE_MODE must be \"vector\" or \"memory\", got %q", cfg.PipelineMode)
	}

	if cfg.PipelineMode == "vector" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required in vector mode - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.MaxChunkSize)
	}

	return cfg, nil
}

// ValidateIngestion checks the extra fields the embed pipeline needs.
func (c *Config) ValidateIngestion() error {
	var missing []string
	if c.GoogleServiceAccountKey == "" {
		missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_KEY")
	}
	if c.GoogleDriveFolderID == "" {
		missing = append(missing, "GOOGLE_DRIVE_FOLDER_ID")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
