package chat

import (
	"sync"
	"time"

	"storefront/internal/model"
	"storefront/internal/realtime"
)

// SessionState is a chat session's lifecycle phase.
type SessionState string

const (
	// StateInitializing is the phase before any room state is loaded.
	StateInitializing SessionState = "initializing"
	// StateLoadingHistory is the phase while the transcript is being fetched.
	StateLoadingHistory SessionState = "loading_history"
	// StateReady means the transcript is loaded and presence is tracked.
	StateReady SessionState = "ready"
)

// Session is one user's live view of a chat room. It owns the dedup set for
// the transcript and the timestamp of the latest AI reply, which gates
// escalation.
type Session struct {
	RoomID string

	conn *realtime.Connection

	mu       sync.Mutex
	state    SessionState
	seen     map[string]struct{}
	lastAIAt time.Time
}

func newSession(roomID string, conn *realtime.Connection) *Session {
	return &Session{
		RoomID: roomID,
		conn:   conn,
		state:  StateInitializing,
		seen:   make(map[string]struct{}),
	}
}

// UserName returns the session owner's display name.
func (s *Session) UserName() string {
	return s.conn.UserName
}

// State returns the session's lifecycle phase.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// remember records a message id in the dedup set. It returns false when the
// id was already present, meaning the message is a replay.
func (s *Session) remember(msg *model.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[msg.ID]; ok {
		return false
	}
	s.seen[msg.ID] = struct{}{}

	if msg.IsFromAI() && msg.CreatedAt.After(s.lastAIAt) {
		s.lastAIAt = msg.CreatedAt
	}
	return true
}

// aiRepliedAfter reports whether an AI message is already timestamped after t.
func (s *Session) aiRepliedAfter(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAIAt.After(t)
}
