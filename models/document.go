package models

import "time"

// Document is an immutable unit of ingested text, identified by the
// external source's stable file ID.
type Document struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
	SourceType   string `json:"source_type"`
}

// Chunk is a bounded substring of a document, the unit of retrieval.
// ChunkID is deterministic: "<document_id>_chunk_<index>".
type Chunk struct {
	ChunkID      string `json:"chunk_id"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Content      string `json:"content"`
	ChunkIndex   int    `json:"chunk_index"`
}

// ScoredChunk pairs a chunk with a relevance score. Lexical scores live in
// [0,1]; vector scores are cosine-similarity derived and filtered to the
// positive range by the retrieval threshold. Never persisted.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// ChunkMetadata is the JSON metadata stored alongside each embedding record.
type ChunkMetadata struct {
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	TextHash     string `json:"text_hash"`
}

// EmbeddingRecord is one row of the persistent embedding store, keyed by
// chunk ID with upsert semantics.
type EmbeddingRecord struct {
	ChunkID    string        `json:"chunk_id"`
	DocumentID string        `json:"document_id"`
	Content    string        `json:"content"`
	Embedding  []float32     `json:"embedding"`
	Metadata   ChunkMetadata `json:"metadata"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// StoreStats summarizes the persistent store for operators.
type StoreStats struct {
	TotalDocuments  int     `json:"total_documents"`
	TotalChunks     int     `json:"total_chunks"`
	AvgChunksPerDoc float64 `json:"avg_chunks_per_doc"`
}

// WebPage is fetched web content consumed once per query, never cached.
type WebPage struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
