package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session tracks one user's ongoing exchange with an assigned agent persona.
// A session is created lazily on first contact and reused across goodbye /
// resume cycles; it is removed only by an explicit history deletion.
type Session struct {
	ID         int64             `json:"session_id"`
	UserName   string            `json:"user_name"`
	AgentName  string            `json:"agent_name"` // fixed for the session lifetime
	Transcript []TranscriptEntry `json:"transcript"`
	Ended      bool              `json:"ended"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// TranscriptEntry is a single speaker/text pair in a session transcript.
// Entries are append-only and insertion order is significant.
type TranscriptEntry struct {
	ID      uuid.UUID `json:"id"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Append adds an entry to the transcript and bumps UpdatedAt.
func (s *Session) Append(speaker, text string, at time.Time) {
	s.Transcript = append(s.Transcript, TranscriptEntry{
		ID:      uuid.New(),
		Speaker: speaker,
		Text:    text,
		At:      at,
	})
	s.UpdatedAt = at
}

// NormalizeUserName folds a user name into the store's lookup key.
func NormalizeUserName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SessionRepository stores and retrieves sessions keyed by normalized user
// name. Exactly one session exists per normalized user name at any time.
type SessionRepository interface {
	// Find returns the session for the user name, or ErrNotFound.
	Find(ctx context.Context, userName string) (*Session, error)
	// AllFor returns every session for the user name, oldest first.
	AllFor(ctx context.Context, userName string) ([]*Session, error)
	// Upsert persists a created or updated session.
	Upsert(ctx context.Context, s *Session) error
	// DeleteAll removes every session for the user name and returns the
	// number removed; ErrNotFound when nothing matched.
	DeleteAll(ctx context.Context, userName string) (int, error)
	// Count reports the number of stored sessions, used to derive the
	// sequence ID of a newly created session.
	Count(ctx context.Context) (int64, error)
}
