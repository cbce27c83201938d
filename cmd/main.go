package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"drive-rag-chatbot/internal/ai"
	"drive-rag-chatbot/internal/config"
	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/internal/rag"
	"drive-rag-chatbot/internal/session"
	"drive-rag-chatbot/internal/source"
	"drive-rag-chatbot/internal/store"
	"drive-rag-chatbot/internal/telemetry"
	"drive-rag-chatbot/internal/webcontent"
	"drive-rag-chatbot/middleware"
	"drive-rag-chatbot/models"
	"drive-rag-chatbot/routes"
	"drive-rag-chatbot/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Init(cfg.GinMode != "release")

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTracer("drive-rag-chatbot", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	ctx := context.Background()

	gemini, err := ai.NewGemini(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer gemini.Close()
	generator := ai.NewClient(gemini)

	webService := webcontent.NewService()
	pipelineOpts := []rag.Option{
		rag.WithTopK(cfg.TopK),
		rag.WithRelevanceThreshold(cfg.RelevanceThreshold),
		rag.WithExtendedKnowledge(cfg.UseExtendedKnowledge),
		rag.WithWebFetcher(webService, webcontent.DetectURLs),
	}

	var (
		retriever   rag.Retriever
		corpusStats services.CorpusStats
	)
	switch cfg.PipelineMode {
	case "vector":
		embeddingStore, err := store.Connect(ctx, cfg.DatabaseURL, cfg.VectorDimensions)
		if err != nil {
			log.Fatal("Failed to connect to embedding store:", err)
		}
		defer embeddingStore.Close()

		stats := embeddingStore.GetStats(ctx)
		logger.Info("embedding store ready",
			"documents", stats.TotalDocuments, "chunks", stats.TotalChunks)

		retriever = rag.NewVectorRetriever(gemini, embeddingStore, cfg.RetrievalThreshold)
		corpusStats = embeddingStore.GetStats

	case "memory":
		docs, err := source.NewFSSource(cfg.DocumentsDir).Load(ctx)
		if err != nil {
			log.Fatal("Failed to load documents:", err)
		}
		chunker := rag.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap)
		corpus := rag.BuildCorpus(docs, chunker)
		logger.Info("in-memory corpus built", "documents", len(docs), "chunks", len(corpus))

		retriever = rag.NewLexicalRetriever(corpus)

		stats := models.StoreStats{TotalDocuments: len(docs), TotalChunks: len(corpus)}
		if len(docs) > 0 {
			stats.AvgChunksPerDoc = float64(len(corpus)) / float64(len(docs))
		}
		corpusStats = func(context.Context) models.StoreStats { return stats }
	}

	pipeline := rag.NewPipeline(retriever, generator, pipelineOpts...)

	sessions := session.NewManager(time.Duration(cfg.SessionTimeoutMinutes) * time.Minute)
	sessions.StartSweeper(time.Duration(cfg.SessionSweepSeconds) * time.Second)
	defer sessions.Stop()

	chatService := services.NewChatService(pipeline, sessions, webService).
		WithCorpusStats(corpusStats)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimit(cfg.RateLimitRPM))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"mode":      cfg.PipelineMode,
			"timestamp": time.Now(),
		})
	})

	routes.SetupChatRoutes(router, chatService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "mode", cfg.PipelineMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
