package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/models"
)

const upsertSQL = `
	INSERT INTO document_embeddings
		(chunk_id, document_id, content, embedding, metadata, updated_at)
	VALUES ($1, $2, $3, $4, $5::jsonb, NOW())
	ON CONFLICT (chunk_id)
	DO UPDATE SET
		document_id = EXCLUDED.document_id,
		content     = EXCLUDED.content,
		embedding   = EXCLUDED.embedding,
		metadata    = EXCLUDED.metadata,
		updated_at  = NOW()`

// Upsert writes or replaces a single embedding record by chunk ID.
func (s *EmbeddingStore) Upsert(ctx context.Context, record models.EmbeddingRecord) error {
	metaJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode chunk metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, upsertSQL,
		record.ChunkID, record.DocumentID, record.Content,
		pgvector.NewVector(record.Embedding), string(metaJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding %s: %w", record.ChunkID, err)
	}
	return nil
}

// BulkUpsert writes all records inside one transaction using a batched
// round trip. Any failure rolls the whole batch back.
func (s *EmbeddingStore) BulkUpsert(ctx context.Context, records []models.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, record := range records {
		metaJSON, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode chunk metadata: %w", err)
		}
		batch.Queue(upsertSQL,
			record.ChunkID, record.DocumentID, record.Content,
			pgvector.NewVector(record.Embedding), string(metaJSON))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("bulk upsert failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bulk upsert: %w", err)
	}

	logger.Debug("bulk upserted embeddings", "count", len(records))
	return nil
}

// SimilaritySearch returns up to topK chunks whose cosine similarity to
// queryEmbedding exceeds threshold, best first. Score is 1 - cosine
// distance. A failed read degrades to an empty result with a logged warning
// so a broken store never crashes the answering flow.
func (s *EmbeddingStore) SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, threshold float64) []models.ScoredChunk {
	vec := pgvector.NewVector(queryEmbedding)
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id,
		       document_id,
		       content,
		       1 - (embedding <=> $1) AS score,
		       metadata
		FROM document_embeddings
		WHERE 1 - (embedding <=> $1) > $2
		ORDER BY embedding <=> $1
		LIMIT $3`, vec, threshold, topK)
	if err != nil {
		logger.Warn("similarity search failed", "error", err)
		return nil
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var (
			chunk    models.ScoredChunk
			metaJSON []byte
		)
		if err := rows.Scan(&chunk.ChunkID, &chunk.DocumentID, &chunk.Content, &chunk.Score, &metaJSON); err != nil {
			logger.Warn("failed to scan similarity search row", "error", err)
			return nil
		}
		var meta models.ChunkMetadata
		if err := json.Unmarshal(metaJSON, &meta); err == nil {
			chunk.DocumentName = meta.DocumentName
			chunk.ChunkIndex = meta.ChunkIndex
		}
		if chunk.DocumentName == "" {
			chunk.DocumentName = "Unknown"
		}
		results = append(results, chunk)
	}
	if err := rows.Err(); err != nil {
		logger.Warn("similarity search iteration failed", "error", err)
		return nil
	}
	return results
}

// GetAllDocumentHashes maps document IDs to their stored fingerprints, for
// ingestion-time change detection. Degrades to empty on read failure.
func (s *EmbeddingStore) GetAllDocumentHashes(ctx context.Context) map[string]string {
	rows, err := s.pool.Query(ctx, `SELECT document_id, document_hash FROM document_metadata`)
	if err != nil {
		logger.Warn("failed to read document hashes", "error", err)
		return map[string]string{}
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			logger.Warn("failed to scan document hash row", "error", err)
			return map[string]string{}
		}
		hashes[id] = hash
	}
	if err := rows.Err(); err != nil {
		logger.Warn("document hash iteration failed", "error", err)
		return map[string]string{}
	}
	return hashes
}

// DeleteDocumentChunks removes every embedding record for a document, so
// stale chunks from a shrunk document cannot linger across re-ingestion.
func (s *EmbeddingStore) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM document_embeddings WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}
	logger.Debug("deleted document chunks", "document_id", documentID, "count", tag.RowsAffected())
	return nil
}

// UpdateDocumentMetadata upserts the per-document change-detection record.
func (s *EmbeddingStore) UpdateDocumentMetadata(ctx context.Context, documentID, documentName, documentHash string, chunkCount int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_metadata
			(document_id, document_name, document_hash, chunk_count, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (document_id)
		DO UPDATE SET
			document_name = EXCLUDED.document_name,
			document_hash = EXCLUDED.document_hash,
			chunk_count   = EXCLUDED.chunk_count,
			updated_at    = NOW()`,
		documentID, documentName, documentHash, chunkCount)
	if err != nil {
		return fmt.Errorf("failed to update metadata for document %s: %w", documentID, err)
	}
	return nil
}
