package source

import (
	"context"

	"drive-rag-chatbot/models"
)

// DocumentSource loads the raw document corpus from wherever it lives.
type DocumentSource interface {
	// Load returns all readable documents. Individual unreadable files are
	// skipped, not fatal; an empty slice with nil error means the source
	// exists but holds nothing usable.
	Load(ctx context.Context) ([]models.Document, error)
}
