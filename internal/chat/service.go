// Package chat implements the session lifecycle controller: it orchestrates
// the session store and the response resolver for each inbound message.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/engine"
	redisstore "github.com/gosuda/parley/internal/store/redis"
)

// defaultUserName is used when a client omits the user name.
const defaultUserName = "User"

// Publisher fans transcript events out to live feed subscribers.
// *redis.PubSub satisfies this interface.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Result is the outward outcome of handling one message.
type Result struct {
	Reply       string
	Transcript  []domain.TranscriptEntry
	EndChat     bool
	UserExisted bool
}

// Event is the payload published to the live transcript feed after each
// handled message.
type Event struct {
	UserName string                   `json:"user_name"`
	Reply    string                   `json:"reply"`
	EndChat  bool                     `json:"end_chat"`
	Entries  []domain.TranscriptEntry `json:"entries"`
}

// Service finds-or-creates a session, applies the resolver, and writes the
// session back. All store mutations run inside a single critical section, so
// concurrent requests cannot drop each other's whole-store updates.
type Service struct {
	mu        sync.Mutex
	repo      domain.SessionRepository
	resolver  *engine.Resolver
	publisher Publisher // nil when the live feed is not configured
}

func NewService(repo domain.SessionRepository, resolver *engine.Resolver, publisher Publisher) *Service {
	return &Service{repo: repo, resolver: resolver, publisher: publisher}
}

// HandleMessage processes one inbound (userName, message) pair and persists
// the resulting session state. A failed write surfaces as
// domain.ErrPersistenceFailed rather than reporting an unsaved reply as
// saved.
func (s *Service) HandleMessage(ctx context.Context, userName, message string) (*Result, error) {
	if strings.TrimSpace(userName) == "" {
		userName = defaultUserName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.repo.Find(ctx, userName)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("chat.Service.HandleMessage: find: %w", err)
	}

	var nextID int64
	if sess == nil {
		count, countErr := s.repo.Count(ctx)
		if countErr != nil {
			return nil, fmt.Errorf("chat.Service.HandleMessage: count: %w", countErr)
		}
		nextID = count + 1
	}

	before := 0
	if sess != nil {
		before = len(sess.Transcript)
	}

	out, err := s.resolver.Resolve(sess, userName, message, nextID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, out.Session); err != nil {
		return nil, fmt.Errorf("chat.Service.HandleMessage: %w: %v", domain.ErrPersistenceFailed, err)
	}

	s.publishEvent(ctx, out, out.Session.Transcript[before:])

	return &Result{
		Reply:       out.Reply,
		Transcript:  out.Session.Transcript,
		EndChat:     out.EndChat,
		UserExisted: out.UserExisted,
	}, nil
}

// History returns the flattened transcript across all sessions for the user
// name, in original order. Unknown users get an empty slice, not an error.
func (s *Service) History(ctx context.Context, userName string) ([]domain.TranscriptEntry, error) {
	sessions, err := s.repo.AllFor(ctx, userName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.TranscriptEntry{}, nil
		}
		return nil, fmt.Errorf("chat.Service.History: %w", err)
	}

	entries := make([]domain.TranscriptEntry, 0)
	for _, sess := range sessions {
		entries = append(entries, sess.Transcript...)
	}

	return entries, nil
}

// DeleteHistory removes every session for the user name and returns the
// number removed; domain.ErrNotFound when nothing matched.
func (s *Service) DeleteHistory(ctx context.Context, userName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.repo.DeleteAll(ctx, userName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("chat.Service.DeleteHistory: %w", err)
	}

	return count, nil
}

// publishEvent pushes the turn's new transcript entries to the live feed.
// The feed is best-effort: publish failures are logged, never surfaced.
func (s *Service) publishEvent(ctx context.Context, out *engine.Outcome, entries []domain.TranscriptEntry) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(Event{
		UserName: out.Session.UserName,
		Reply:    out.Reply,
		EndChat:  out.EndChat,
		Entries:  entries,
	})
	if err != nil {
		log.Error().Err(err).Msg("marshal transcript event")
		return
	}

	channel := redisstore.ChatChannel(out.Session.UserName)
	if err := s.publisher.Publish(ctx, channel, payload); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("publish transcript event")
	}
}
