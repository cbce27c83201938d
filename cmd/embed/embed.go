package main

import (
	"context"
	"flag"
	"log"

	"drive-rag-chatbot/internal/ai"
	"drive-rag-chatbot/internal/config"
	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/internal/rag"
	"drive-rag-chatbot/internal/source"
	"drive-rag-chatbot/internal/store"
	"drive-rag-chatbot/services"
)

// Ingestion CLI: loads the Google Drive folder, embeds changed documents and
// writes them to the pgvector store. Run it before starting the server in
// vector mode, and again whenever the folder changes.
func main() {
	forceRebuild := flag.Bool("force-rebuild", false, "reprocess all documents regardless of stored hashes")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Init(cfg.GinMode != "release")

	if err := cfg.ValidateIngestion(); err != nil {
		log.Fatal("Ingestion config invalid: ", err)
	}

	ctx := context.Background()

	driveSource, err := source.NewDriveSource(ctx, cfg.GoogleServiceAccountKey, cfg.GoogleDriveFolderID)
	if err != nil {
		log.Fatal("Failed to initialize Google Drive source:", err)
	}
	if err := driveSource.TestConnection(ctx); err != nil {
		log.Fatal("Google Drive connection failed:", err)
	}

	embeddingStore, err := store.Connect(ctx, cfg.DatabaseURL, cfg.VectorDimensions)
	if err != nil {
		log.Fatal("Failed to connect to embedding store:", err)
	}
	defer embeddingStore.Close()

	if err := embeddingStore.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure schema:", err)
	}

	gemini, err := ai.NewGemini(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer gemini.Close()

	chunker := rag.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap)

	pipeline := services.NewEmbedPipeline(driveSource, embeddingStore, gemini, chunker, cfg.EmbedBatchSize)
	if err := pipeline.Run(ctx, *forceRebuild); err != nil {
		log.Fatal("Ingestion failed:", err)
	}
}
