// Package engine implements the response resolver: the pure decision
// function that maps an incoming message and the current session state to a
// reply and a state transition.
package engine

import (
	"math/rand"
	"strings"
	"time"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/rules"
)

// Fixed reply templates used outside the configured rule set.
const (
	newSessionGreeting = "Hi, I am {agent_name}. How can I help you?"
	resumeGreeting     = "Hi again, {user_name}! What can I help you with this time?"
	disconnectNotice   = "You have been disconnected due to inactivity. Please refresh the page to continue your chat."
)

// DefaultDisconnectProbability is the per-message chance of a simulated
// inactivity disconnect on an active session.
const DefaultDisconnectProbability = 0.04

// Outcome is the result of resolving one inbound message.
type Outcome struct {
	Session     *domain.Session
	Reply       string
	EndChat     bool
	UserExisted bool
}

// Resolver decides, for one inbound message, what state transition occurs
// and what reply is produced. The random source is injected so behavior is
// deterministic under a fixed seed. A Resolver is not safe for concurrent
// use; the lifecycle controller serializes calls.
type Resolver struct {
	rules          *rules.Set
	rng            *rand.Rand
	disconnectProb float64
	strategy       rules.MatchStrategy
}

// New creates a Resolver over an immutable rule set.
func New(set *rules.Set, rng *rand.Rand, disconnectProb float64, strategy rules.MatchStrategy) *Resolver {
	if strategy == "" {
		strategy = rules.MatchSubstring
	}
	return &Resolver{
		rules:          set,
		rng:            rng,
		disconnectProb: disconnectProb,
		strategy:       strategy,
	}
}

// Resolve applies the resolution policy, in priority order: new user,
// session resumption, empty-message rejection, random disconnect, goodbye,
// keyword matching, greeting fallback, generic fallback.
//
// sess is nil for an unseen user; nextID is the sequence ID a newly created
// session receives. The returned session is the mutated input (or the newly
// created one) and must be persisted by the caller.
func (r *Resolver) Resolve(sess *domain.Session, userName, message string, nextID int64) (*Outcome, error) {
	now := time.Now()

	// First contact: create the session and greet. The incoming message, if
	// any, is ignored for this turn.
	if sess == nil {
		agentName := r.pick(r.rules.AgentNames)
		sess = &domain.Session{
			ID:        nextID,
			UserName:  userName,
			AgentName: agentName,
			CreatedAt: now,
			UpdatedAt: now,
		}
		greeting := rules.Render(newSessionGreeting, userName, agentName)
		sess.Append(agentName, greeting, now)

		return &Outcome{Session: sess, Reply: greeting}, nil
	}

	// Resuming an ended session: re-engage regardless of message content.
	if sess.Ended {
		sess.Ended = false
		greeting := rules.Render(resumeGreeting, userName, sess.AgentName)
		sess.Append(sess.AgentName, greeting, now)

		return &Outcome{Session: sess, Reply: greeting, UserExisted: true}, nil
	}

	if strings.TrimSpace(message) == "" {
		return nil, domain.ErrEmptyMessage
	}

	// Simulated inactivity disconnect. Checked before goodbye handling, so a
	// disconnect wins even when the message also contains an end keyword.
	if r.rng.Float64() < r.disconnectProb {
		sess.Ended = true
		sess.UpdatedAt = now

		return &Outcome{Session: sess, Reply: disconnectNotice, EndChat: true, UserExisted: true}, nil
	}

	lower := strings.ToLower(message)

	if containsEndKeyword(lower) {
		sess.Append(userName, message, now)

		quitRule, _ := r.rules.Find(rules.KeywordQuit)
		reply := rules.Render(r.pick(quitRule.Replies), userName, sess.AgentName)
		sess.Append(sess.AgentName, reply, now)
		sess.Ended = true

		return &Outcome{Session: sess, Reply: reply, EndChat: true, UserExisted: true}, nil
	}

	// Collect one rendered reply per matching rule, in rule order; multiple
	// matches concatenate rather than picking one.
	var matched []string
	for _, rule := range r.rules.Rules {
		if rule.Matches(lower, r.strategy) {
			matched = append(matched, r.pick(rule.Replies))
		}
	}

	var reply string
	switch {
	case len(matched) > 0:
		reply = strings.Join(matched, " ")
	case r.containsGreeting(lower):
		greetRule, _ := r.rules.Find(rules.KeywordGreetings)
		reply = r.pick(greetRule.Replies)
	default:
		reply = r.pick(r.rules.Fallbacks)
	}

	reply = rules.Render(reply, userName, sess.AgentName)
	sess.Append(userName, message, now)
	sess.Append(sess.AgentName, reply, now)

	return &Outcome{Session: sess, Reply: reply, UserExisted: true}, nil
}

func (r *Resolver) pick(options []string) string {
	return options[r.rng.Intn(len(options))]
}

// containsEndKeyword reports whether any end keyword appears as a whole
// token in the lowercased message.
func containsEndKeyword(lowerMessage string) bool {
	tokens := strings.Fields(lowerMessage)
	for _, tok := range tokens {
		for _, kw := range rules.EndKeywords {
			if tok == kw {
				return true
			}
		}
	}
	return false
}

// containsGreeting reports whether any greeting keyword appears in the
// lowercased message. Single-word keywords follow the configured match
// strategy; multi-word phrases always match by containment.
func (r *Resolver) containsGreeting(lowerMessage string) bool {
	for _, kw := range rules.GreetingKeywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lowerMessage, kw) {
				return true
			}
			continue
		}
		if (rules.Rule{Keyword: kw}).Matches(lowerMessage, r.strategy) {
			return true
		}
	}
	return false
}
