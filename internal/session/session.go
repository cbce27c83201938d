package session

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"drive-rag-chatbot/internal/logger"
)

// Session tracks one chat conversation's liveness window.
type Session struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Manager holds chat sessions in memory with a sliding inactivity expiry.
// Expired sessions are swept on a fixed schedule, but liveness checks never
// depend on the sweep having run.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	timeout   time.Duration
	scheduler *gocron.Scheduler
}

func NewManager(timeout time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// StartSweeper launches a background job that drops expired sessions every
// sweepInterval. Call Stop to shut it down.
func (m *Manager) StartSweeper(sweepInterval time.Duration) {
	m.scheduler = gocron.NewScheduler(time.UTC)
	m.scheduler.Every(sweepInterval).Do(func() {
		if removed := m.sweep(); removed > 0 {
			logger.Debug("swept expired sessions", "count", removed)
		}
	})
	m.scheduler.StartAsync()
}

// Stop halts the background sweeper.
func (m *Manager) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

// Create registers a new session and returns its ID.
func (m *Manager) Create() *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	logger.Debug("session created", "session_id", s.ID)
	return s
}

// IsActive reports whether a session exists and has seen activity within the
// timeout window.
func (m *Manager) IsActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	return ok && time.Since(s.LastActivity) < m.timeout
}

// Touch slides the expiry window forward and counts the message. Returns
// false if the session does not exist or has already expired; an expired
// session cannot be revived by touching it.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || time.Since(s.LastActivity) >= m.timeout {
		return false
	}
	s.LastActivity = time.Now()
	s.MessageCount++
	return true
}

// Info returns a snapshot of a live session, or nil.
func (m *Manager) Info(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || time.Since(s.LastActivity) >= m.timeout {
		return nil
	}
	copied := *s
	return &copied
}

// Clear removes a session immediately.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// ActiveCount counts sessions still inside their liveness window.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, s := range m.sessions {
		if time.Since(s.LastActivity) < m.timeout {
			count++
		}
	}
	return count
}

func (m *Manager) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if time.Since(s.LastActivity) >= m.timeout {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
