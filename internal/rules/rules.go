// Package rules holds the static keyword-to-reply configuration that drives
// the response resolver. The rule set is loaded once at startup and treated
// as immutable afterwards.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Reserved rule keywords. They live in the same ordered rule list as
// regular keywords: "quit" supplies goodbye replies, "greetings" supplies
// greeting-fallback replies.
const (
	KeywordQuit      = "quit"
	KeywordGreetings = "greetings"
)

// End keywords that terminate a chat when present in a message.
var EndKeywords = []string{"bye", "goodbye", "exit", "quit"}

// Greeting keywords checked when no regular rule matched.
var GreetingKeywords = []string{"hi", "hello", "how are you"}

// MatchStrategy selects how a rule keyword is matched against a message.
type MatchStrategy string

const (
	// MatchSubstring matches a keyword as a case-insensitive substring of
	// the message, so short keywords can match inside unrelated words.
	MatchSubstring MatchStrategy = "substring"
	// MatchToken matches a keyword as a whole whitespace-delimited token.
	MatchToken MatchStrategy = "token"
)

// Rule maps one keyword to its candidate reply templates. Templates may
// embed {user_name} and {agent_name} placeholders.
type Rule struct {
	Keyword string   `json:"keyword"`
	Replies []string `json:"replies"`
}

// Set is the full immutable rule configuration.
type Set struct {
	AgentNames []string `json:"agent_names"`
	Rules      []Rule   `json:"keyword_rules"`
	Fallbacks  []string `json:"fallback_responses"`
}

// Load reads and validates a rule set from a JSON file. Any failure here is
// fatal at startup; the process must not serve traffic without rules.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules.Load: read %s: %w", path, err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("rules.Load: parse %s: %w", path, err)
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("rules.Load: %s: %w", path, err)
	}

	return &set, nil
}

// Validate checks that every required list is present and non-empty and that
// the reserved rule entries exist.
func (s *Set) Validate() error {
	if len(s.AgentNames) == 0 {
		return errors.New("agent_names must not be empty")
	}
	if len(s.Rules) == 0 {
		return errors.New("keyword_rules must not be empty")
	}
	if len(s.Fallbacks) == 0 {
		return errors.New("fallback_responses must not be empty")
	}

	seen := make(map[string]bool, len(s.Rules))
	for i, r := range s.Rules {
		if strings.TrimSpace(r.Keyword) == "" {
			return fmt.Errorf("keyword_rules[%d]: keyword must not be empty", i)
		}
		if len(r.Replies) == 0 {
			return fmt.Errorf("keyword_rules[%d] (%q): replies must not be empty", i, r.Keyword)
		}
		key := strings.ToLower(r.Keyword)
		if seen[key] {
			return fmt.Errorf("keyword_rules[%d]: duplicate keyword %q", i, r.Keyword)
		}
		seen[key] = true
	}

	if !seen[KeywordQuit] {
		return fmt.Errorf("keyword_rules must contain a %q entry", KeywordQuit)
	}
	if !seen[KeywordGreetings] {
		return fmt.Errorf("keyword_rules must contain a %q entry", KeywordGreetings)
	}

	return nil
}

// Find returns the rule for a keyword, case-insensitively.
func (s *Set) Find(keyword string) (Rule, bool) {
	for _, r := range s.Rules {
		if strings.EqualFold(r.Keyword, keyword) {
			return r, true
		}
	}
	return Rule{}, false
}

// Matches reports whether the rule's keyword matches the lowercased message
// under the given strategy.
func (r Rule) Matches(lowerMessage string, strategy MatchStrategy) bool {
	keyword := strings.ToLower(r.Keyword)
	if strategy == MatchToken {
		for _, tok := range strings.Fields(lowerMessage) {
			if tok == keyword {
				return true
			}
		}
		return false
	}
	return strings.Contains(lowerMessage, keyword)
}

// Render substitutes the {user_name} and {agent_name} placeholders.
func Render(template, userName, agentName string) string {
	out := strings.ReplaceAll(template, "{user_name}", userName)
	return strings.ReplaceAll(out, "{agent_name}", agentName)
}
