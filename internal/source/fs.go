package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/models"
)

// FSSource reads .txt and .md files from a local directory. Used for local
// development and the in-memory pipeline mode.
type FSSource struct {
	dir string
}

func NewFSSource(dir string) *FSSource {
	return &FSSource{dir: dir}
}

func (s *FSSource) Load(_ context.Context) ([]models.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory %s: %w", s.dir, err)
	}

	var docs []models.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			logger.Warn("skipping empty file", "path", path)
			continue
		}

		info, _ := entry.Info()
		doc := models.Document{
			ID:         entry.Name(),
			Name:       entry.Name(),
			Content:    content,
			SourceType: "filesystem",
		}
		if info != nil {
			doc.Size = info.Size()
			doc.ModifiedTime = info.ModTime().UTC().Format("2006-01-02T15:04:05Z")
		}
		docs = append(docs, doc)
	}

	logger.Info("loaded documents from filesystem", "dir", s.dir, "count", len(docs))
	return docs, nil
}
