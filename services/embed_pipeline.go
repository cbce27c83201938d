package services

import (
	"context"
	"fmt"

	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/internal/rag"
	"drive-rag-chatbot/internal/source"
	"drive-rag-chatbot/internal/store"
	"drive-rag-chatbot/models"
)

// BatchEmbedder produces embeddings for a batch of texts in one API round
// trip.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedPipeline ingests a document source into the embedding store. Change
// detection by content hash keeps re-runs cheap: only new or modified
// documents are re-chunked and re-embedded.
type EmbedPipeline struct {
	source    source.DocumentSource
	store     *store.EmbeddingStore
	embedder  BatchEmbedder
	chunker   *rag.Chunker
	batchSize int
}

func NewEmbedPipeline(src source.DocumentSource, st *store.EmbeddingStore, embedder BatchEmbedder, chunker *rag.Chunker, batchSize int) *EmbedPipeline {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &EmbedPipeline{
		source:    src,
		store:     st,
		embedder:  embedder,
		chunker:   chunker,
		batchSize: batchSize,
	}
}

// Run loads all documents, processes the changed ones, and logs final store
// statistics. With forceRebuild every document is reprocessed regardless of
// its stored hash. A document that fails mid-processing is skipped so one
// bad file cannot block the rest of the corpus.
func (p *EmbedPipeline) Run(ctx context.Context, forceRebuild bool) error {
	documents, err := p.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	logger.Info("loaded documents", "count", len(documents))

	cachedHashes := map[string]string{}
	if forceRebuild {
		logger.Info("force rebuild mode: processing all documents")
	} else {
		cachedHashes = p.store.GetAllDocumentHashes(ctx)
		logger.Info("found documents in database", "count", len(cachedHashes))
	}

	processed := 0
	for _, doc := range documents {
		hash := rag.DocumentHash(doc)
		if !forceRebuild && cachedHashes[doc.ID] == hash {
			continue
		}
		if err := p.processDocument(ctx, doc, hash); err != nil {
			logger.Error("failed to process document", "name", doc.Name, "error", err)
			continue
		}
		processed++
	}

	if processed == 0 {
		logger.Info("all documents up to date, no processing needed")
		return nil
	}

	stats := p.store.GetStats(ctx)
	logger.Info("ingestion complete",
		"processed", processed,
		"total_documents", stats.TotalDocuments,
		"total_chunks", stats.TotalChunks,
		"avg_chunks_per_doc", stats.AvgChunksPerDoc)
	return nil
}

// processDocument replaces a document's chunks wholesale: delete, re-chunk,
// re-embed, upsert, then record the new hash. Deleting first guarantees a
// shrunk document leaves no stale chunks behind.
func (p *EmbedPipeline) processDocument(ctx context.Context, doc models.Document, hash string) error {
	logger.Info("processing document", "name", doc.Name, "chars", len(doc.Content))

	if err := p.store.DeleteDocumentChunks(ctx, doc.ID); err != nil {
		return err
	}

	chunks := p.chunker.SplitDocument(doc)
	if len(chunks) == 0 {
		logger.Warn("document produced no chunks", "name", doc.Name)
		return p.store.UpdateDocumentMetadata(ctx, doc.ID, doc.Name, hash, 0)
	}

	var records []models.EmbeddingRecord
	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		embeddings, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch: %w", err)
		}

		for i, chunk := range batch {
			records = append(records, models.EmbeddingRecord{
				ChunkID:    chunk.ChunkID,
				DocumentID: chunk.DocumentID,
				Content:    chunk.Content,
				Embedding:  embeddings[i],
				Metadata: models.ChunkMetadata{
					DocumentName: doc.Name,
					ChunkIndex:   chunk.ChunkIndex,
					TextHash:     rag.TextHash(chunk.Content),
				},
			})
		}
	}

	if err := p.store.BulkUpsert(ctx, records); err != nil {
		return err
	}
	if err := p.store.UpdateDocumentMetadata(ctx, doc.ID, doc.Name, hash, len(chunks)); err != nil {
		return err
	}

	logger.Info("document processed", "name", doc.Name, "chunks", len(chunks))
	return nil
}
