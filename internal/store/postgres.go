package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/models"
)

// EmbeddingStore persists chunk embeddings and document metadata in
// PostgreSQL with the pgvector extension. All access goes through a shared
// connection pool; callers never assume exclusivity.
type EmbeddingStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// Connect opens a pooled connection and verifies it. The pgvector types are
// registered on every new connection.
func Connect(ctx context.Context, databaseURL string, dimensions int) (*EmbeddingStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &EmbeddingStore{pool: pool, dimensions: dimensions}, nil
}

// EnsureSchema creates the extension, both tables and their indexes. Safe to
// run repeatedly.
func (s *EmbeddingStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_embeddings (
			chunk_id    TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d),
			metadata    JSONB NOT NULL DEFAULT '{}',
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_document_embeddings_document_id
			ON document_embeddings (document_id)`,
		`CREATE TABLE IF NOT EXISTS document_metadata (
			document_id   TEXT PRIMARY KEY,
			document_name TEXT NOT NULL,
			document_hash TEXT NOT NULL,
			chunk_count   INT NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
	}
	return nil
}

// GetStats summarizes the store contents. A failed read degrades to empty
// stats with a logged warning.
func (s *EmbeddingStore) GetStats(ctx context.Context) models.StoreStats {
	var stats models.StoreStats
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(chunk_count), 0),
		       COALESCE(AVG(chunk_count), 0)
		FROM document_metadata`)
	if err := row.Scan(&stats.TotalDocuments, &stats.TotalChunks, &stats.AvgChunksPerDoc); err != nil {
		logger.Warn("failed to read store stats", "error", err)
		return models.StoreStats{}
	}
	return stats
}

// Close releases the connection pool.
func (s *EmbeddingStore) Close() {
	s.pool.Close()
}
