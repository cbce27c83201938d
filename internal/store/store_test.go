package store

import (
	"context"
	"os"
	"testing"

	"drive-rag-chatbot/models"
)

// Integration tests need a running PostgreSQL with the pgvector extension.
// Set DATABASE_URL to run them.
func testStore(t *testing.T) *EmbeddingStore {
	t.Helper()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	s, err := Connect(context.Background(), databaseURL, 768)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema setup failed: %v", err)
	}
	return s
}

func TestUpsertAndSearchRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	embedding := make([]float32, 768)
	embedding[0] = 1

	record := models.EmbeddingRecord{
		ChunkID:    "storetest-doc_chunk_0",
		DocumentID: "storetest-doc",
		Content:    "refund policy test content",
		Embedding:  embedding,
		Metadata: models.ChunkMetadata{
			DocumentName: "storetest.txt",
			ChunkIndex:   0,
			TextHash:     "abcdef0123456789",
		},
	}
	if err := s.Upsert(ctx, record); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	defer s.DeleteDocumentChunks(ctx, "storetest-doc")

	results := s.SimilaritySearch(ctx, embedding, 5, 0.9)
	found := false
	for _, res := range results {
		if res.ChunkID == record.ChunkID {
			found = true
			if res.DocumentName != "storetest.txt" {
				t.Errorf("metadata not round-tripped: %q", res.DocumentName)
			}
			if res.Score <= 0.9 {
				t.Errorf("identical vector should score near 1, got %f", res.Score)
			}
		}
	}
	if !found {
		t.Error("upserted chunk not returned by similarity search")
	}
}

func TestDocumentHashLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.UpdateDocumentMetadata(ctx, "storetest-meta", "meta.txt", "1111222233334444", 3); err != nil {
		t.Fatalf("metadata upsert failed: %v", err)
	}

	hashes := s.GetAllDocumentHashes(ctx)
	if hashes["storetest-meta"] != "1111222233334444" {
		t.Errorf("expected stored hash, got %q", hashes["storetest-meta"])
	}

	// Re-upsert with a new hash must replace, not duplicate.
	if err := s.UpdateDocumentMetadata(ctx, "storetest-meta", "meta.txt", "5555666677778888", 4); err != nil {
		t.Fatalf("metadata re-upsert failed: %v", err)
	}
	hashes = s.GetAllDocumentHashes(ctx)
	if hashes["storetest-meta"] != "5555666677778888" {
		t.Errorf("expected replaced hash, got %q", hashes["storetest-meta"])
	}
}

func TestGetStatsDoesNotError(t *testing.T) {
	s := testStore(t)
	stats := s.GetStats(context.Background())
	if stats.TotalDocuments < 0 || stats.TotalChunks < 0 {
		t.Errorf("nonsensical stats: %+v", stats)
	}
}
