// Package session keeps per-session conversation history so follow-up
// questions can reference earlier exchanges. Sessions are identified by
// opaque IDs and live only as long as the process.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Turn is a single utterance in a conversation.
type Turn struct {
	Role string
	Text string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Store holds conversation history for any number of concurrent sessions.
// The window is counted in exchanges: window=2 keeps the last two
// user/assistant pairs, so at most window*2 turns. A window of 0 keeps
// nothing, turning history off entirely.
type Store struct {
	mu       sync.Mutex
	window   int
	sessions map[string][]Turn
}

func NewStore(window int) *Store {
	if window < 0 {
		window = 0
	}
	return &Store{
		window:   window,
		sessions: make(map[string][]Turn),
	}
}

// NewSessionID mints an identifier for a fresh conversation.
func (s *Store) NewSessionID() string {
	return uuid.NewString()
}

// AppendTurn records an utterance, creating the session on first use and
// trimming the oldest turns once the window is exceeded.
func (s *Store) AppendTurn(sessionID, role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], Turn{Role: role, Text: text})
	if max := s.window * 2; len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	s.sessions[sessionID] = turns
}

// Context renders the session's recent turns as a prompt fragment.
// It returns "" for unknown or empty sessions.
func (s *Store) Context(sessionID string) string {
	s.mu.Lock()
	turns := s.sessions[sessionID]
	s.mu.Unlock()

	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch turn.Role {
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(turn.Text)
	}
	return b.String()
}

// Clear forgets a session. Clearing an unknown session is a no-op.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}
