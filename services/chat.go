package services

import (
	"context"
	"errors"

	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/internal/rag"
	"drive-rag-chatbot/internal/session"
	"drive-rag-chatbot/internal/webcontent"
	"drive-rag-chatbot/models"
)

// ErrSessionExpired means the session ID is unknown or past its inactivity
// window.
var ErrSessionExpired = errors.New("session expired or not found")

// CorpusStats reports the size of the loaded document corpus.
type CorpusStats func(ctx context.Context) models.StoreStats

// ChatService ties sessions, user-supplied URLs and the answering pipeline
// together behind one call per message.
type ChatService struct {
	pipeline *rag.Pipeline
	sessions *session.Manager
	web      *webcontent.Service
	stats    CorpusStats
}

func NewChatService(pipeline *rag.Pipeline, sessions *session.Manager, web *webcontent.Service) *ChatService {
	return &ChatService{pipeline: pipeline, sessions: sessions, web: web}
}

// WithCorpusStats attaches a corpus size reporter for the stats endpoint.
func (s *ChatService) WithCorpusStats(fn CorpusStats) *ChatService {
	s.stats = fn
	return s
}

// Stats snapshots the corpus size. Zero-valued when no reporter is attached.
func (s *ChatService) Stats(ctx context.Context) models.StoreStats {
	if s.stats == nil {
		return models.StoreStats{}
	}
	return s.stats(ctx)
}

// StartSession opens a new chat session.
func (s *ChatService) StartSession() *session.Session {
	return s.sessions.Create()
}

// SessionInfo returns a live session snapshot, or nil.
func (s *ChatService) SessionInfo(id string) *session.Session {
	return s.sessions.Info(id)
}

// EndSession drops a session immediately.
func (s *ChatService) EndSession(id string) {
	s.sessions.Clear(id)
}

// ActiveSessions counts sessions inside their liveness window.
func (s *ChatService) ActiveSessions() int {
	return s.sessions.ActiveCount()
}

// HandleMessage validates the session, fetches any URLs the user pasted into
// their message, and runs the answering pipeline.
func (s *ChatService) HandleMessage(ctx context.Context, sessionID, message string) (string, error) {
	if !s.sessions.Touch(sessionID) {
		return "", ErrSessionExpired
	}

	var pages []models.WebPage
	if urls := webcontent.DetectURLs(message); len(urls) > 0 {
		logger.Debug("fetching URLs from message", "count", len(urls))
		pages = s.web.FetchAll(ctx, urls)
	}

	return s.pipeline.GenerateResponse(ctx, message, pages)
}
