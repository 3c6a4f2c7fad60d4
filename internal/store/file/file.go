// Package file provides a session repository backed by a single JSON
// snapshot file. Every operation is a whole-store read-modify-write; a
// missing or corrupt file reads as an empty store and self-heals on the
// next write.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/parley/internal/domain"
)

// Store is a file-backed domain.SessionRepository. All mutations are
// serialized behind a mutex, so concurrent writers cannot drop each other's
// whole-store snapshots.
type Store struct {
	mu   sync.RWMutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Find(_ context.Context, userName string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.load()
	key := domain.NormalizeUserName(userName)
	for _, sess := range sessions {
		if domain.NormalizeUserName(sess.UserName) == key {
			return sess, nil
		}
	}

	return nil, domain.ErrNotFound
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

	sessions := s.load()
	key := domain.NormalizeUserName(sess.UserName)

	replaced := false
	for i, existing := range sessions {
		if domain.NormalizeUserName(existing.UserName) == key {
			sessions[i] = sess
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, sess)
	}

	if err := s.save(sessions); err != nil {
		return fmt.Errorf("file.Store.Upsert: %w", err)
	}

	return nil
}

func (s *Store) DeleteAll(_ context.Context, userName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	key := domain.NormalizeUserName(userName)

	kept := sessions[:0]
	for _, sess := range sessions {
		if domain.NormalizeUserName(sess.UserName) != key {
			kept = append(kept, sess)
		}
	}

	removed := len(sessions) - len(kept)
	if removed == 0 {
		return 0, domain.ErrNotFound
	}

	if err := s.save(kept); err != nil {
		return 0, fmt.Errorf("file.Store.DeleteAll: %w", err)
	}

	return removed, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.load())), nil
}

// load reads the full snapshot. Durability is best-effort: unreadable or
// malformed content is logged and treated as an empty store.
func (s *Store) load() []*domain.Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", s.path).Msg("session store unreadable, treating as empty")
		}
		return nil
	}

	var sessions []*domain.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("session store corrupt, treating as empty")
		return nil
	}

	return sessions
}

// save overwrites the full snapshot via temp file + rename.
func (s *Store) save(sessions []*domain.Session) error {
	if sessions == nil {
		sessions = []*domain.Session{}
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}
