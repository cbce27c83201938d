package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"drive-rag-chatbot/models"
)

// ErrNoDocuments signals an uninitialized lexical pipeline: retrieval was
// asked to run before any document was loaded.
var ErrNoDocuments = errors.New("no documents loaded")

// Retriever returns the chunks most relevant to a query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error)
}

// LexicalRetriever scores an in-memory chunk corpus with the keyword
// scorer. Zero-dependency fallback mode for deployments without a vector
// store.
type LexicalRetriever struct {
	chunks []models.Chunk
}

func NewLexicalRetriever(chunks []models.Chunk) *LexicalRetriever {
	return &LexicalRetriever{chunks: chunks}
}

// BuildCorpus chunks every document into one flat retrieval corpus.
func BuildCorpus(docs []models.Document, chunker *Chunker) []models.Chunk {
	var corpus []models.Chunk
	for _, doc := range docs {
		corpus = append(corpus, chunker.SplitDocument(doc)...)
	}
	return corpus
}

// Retrieve scores every chunk, keeps positive scores, and returns the topK
// best. An empty corpus is a hard error since it means the pipeline was
// never initialized.
func (r *LexicalRetriever) Retrieve(_ context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	if len(r.chunks) == 0 {
		return nil, ErrNoDocuments
	}

	var scored []models.ScoredChunk
	for _, chunk := range r.chunks {
		score := LexicalScore(query, chunk.Content)
		if score > 0 {
			scored = append(scored, models.ScoredChunk{Chunk: chunk, Score: score})
		}
	}

	// Stable sort keeps corpus order among ties, so results are
	// deterministic for identical inputs.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Embedder turns text into a fixed-length vector. Must be the same model
// used at ingestion time.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// SimilaritySearcher is the vector store's retrieval surface.
type SimilaritySearcher interface {
	SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, threshold float64) []models.ScoredChunk
}

// VectorRetriever embeds the query and delegates to the embedding store. An
// empty store yields an empty result, not an error: "not yet populated" is a
// valid state the caller can distinguish via store stats.
type VectorRetriever struct {
	embedder  Embedder
	store     SimilaritySearcher
	threshold float64
}

func NewVectorRetriever(embedder Embedder, store SimilaritySearcher, threshold float64) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, store: store, threshold: threshold}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	queryEmbedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return r.store.SimilaritySearch(ctx, queryEmbedding, topK, r.threshold), nil
}
