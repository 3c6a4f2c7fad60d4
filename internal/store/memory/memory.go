// Package memory provides an in-memory session repository, used by the
// `memory` store driver and as the fixture store in tests.
package memory

import (
	"context"
	"sync"

	"github.com/gosuda/parley/internal/domain"
)

// Store is an in-memory domain.SessionRepository keyed by normalized user
// name. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func New() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

func (s *Store) Find(_ context.Context, userName string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[domain.NormalizeUserName(userName)]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return cloneSession(sess), nil
}

func (s *Store) AllFor(ctx context.Context, userName string) ([]*domain.Session, error) {
	sess, err := s.Find(ctx, userName)
	if err != nil {
		return nil, err
	}

	return []*domain.Session{sess}, nil
}

func (s *Store) Upsert(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[domain.NormalizeUserName(sess.UserName)] = cloneSession(sess)

	return nil
}

func (s *Store) DeleteAll(_ context.Context, userName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormalizeUserName(userName)
	if _, ok := s.sessions[key]; !ok {
		return 0, domain.ErrNotFound
	}
	delete(s.sessions, key)

	return 1, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.sessions)), nil
}

// cloneSession copies a session so callers cannot mutate stored state
// without going through Upsert.
func cloneSession(in *domain.Session) *domain.Session {
	out := *in
	out.Transcript = make([]domain.TranscriptEntry, len(in.Transcript))
	copy(out.Transcript, in.Transcript)
	return &out
}
