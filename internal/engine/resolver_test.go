package engine_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/engine"
	"github.com/gosuda/parley/internal/rules"
)

// testRules uses single-reply rules so replies are deterministic regardless
// of the random source.
func testRules() *rules.Set {
	return &rules.Set{
		AgentNames: []string{"Vera"},
		Rules: []rules.Rule{
			{Keyword: "greetings", Replies: []string{"Greetings, {user_name}!"}},
			{Keyword: "quit", Replies: []string{"Goodbye {user_name}, take care!"}},
			{Keyword: "refund", Replies: []string{"I can help with your refund, {user_name}."}},
			{Keyword: "hello", Replies: []string{"Hello from {agent_name}!"}},
		},
		Fallbacks: []string{"Could you tell me more?"},
	}
}

func newResolver(t *testing.T, disconnectProb float64, strategy rules.MatchStrategy) *engine.Resolver {
	t.Helper()
	return engine.New(testRules(), rand.New(rand.NewSource(42)), disconnectProb, strategy)
}

func activeSession() *domain.Session {
	s := &domain.Session{
		ID:        1,
		UserName:  "Alice",
		AgentName: "Vera",
		CreatedAt: time.Now(),
	}
	s.Append("Vera", "Hi, I am Vera. How can I help you?", time.Now())
	return s
}

func TestResolve_NewUser(t *testing.T) {
	t.Parallel()

	r := newResolver(t, 0, rules.MatchSubstring)

	out, err := r.Resolve(nil, "Alice", "this message is ignored", 7)
	require.NoError(t, err)

	require.NotNil(t, out.Session)
	assert.EqualValues(t, 7, out.Session.ID)
	assert.Equal(t, "Alice", out.Session.UserName)
	assert.Equal(t, "Vera", out.Session.AgentName)
	assert.False(t, out.Session.Ended)
	assert.False(t, out.UserExisted)
	assert.False(t, out.EndChat)

	// Exactly one transcript entry, from the agent, and it is the reply.
	require.Len(t, out.Session.Transcript, 1)
	assert.Equal(t, "Vera", out.Session.Transcript[0].Speaker)
	assert.Equal(t, "Hi, I am Vera. How can I help you?", out.Session.Transcript[0].Text)
	assert.Equal(t, out.Session.Transcript[0].Text, out.Reply)
}

func TestResolve_ResumeEndedSession(t *testing.T) {
	t.Parallel()

	// Resumption wins regardless of message content, even a goodbye.
	for _, message := range []string{"", "hello", "bye"} {
		r := newResolver(t, 1, rules.MatchSubstring) // disconnect would fire if reached

		sess := activeSession()
		sess.Ended = true
		before := len(sess.Transcript)

		out, err := r.Resolve(sess, "Alice", message, 0)
		require.NoError(t, err)

		assert.False(t, out.Session.Ended)
		assert.False(t, out.EndChat)
		assert.True(t, out.UserExisted)
		assert.Equal(t, "Hi again, Alice! What can I help you with this time?", out.Reply)
		require.Len(t, out.Session.Transcript, before+1)
		assert.Equal(t, "Vera", out.Session.Transcript[before].Speaker)
	}
}

func TestResolve_EmptyMessage(t *testing.T) {
	t.Parallel()

	r := newResolver(t, 0, rules.MatchSubstring)

	for _, message := range []string{"", "   ", "\t\n"} {
		sess := activeSession()
		before := len(sess.Transcript)

		_, err := r.Resolve(sess, "Alice", message, 0)
		require.ErrorIs(t, err, domain.ErrEmptyMessage)

		// No state change on rejection.
		assert.Len(t, sess.Transcript, before)
		assert.False(t, sess.Ended)
	}
}

func TestResolve_RandomDisconnect(t *testing.T) {
	t.Parallel()

	t.Run("fires_with_certain_probability", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 1, rules.MatchSubstring)
		sess := activeSession()
		before := len(sess.Transcript)

		out, err := r.Resolve(sess, "Alice", "hello", 0)
		require.NoError(t, err)

		assert.True(t, out.Session.Ended)
		assert.True(t, out.EndChat)
		assert.Contains(t, out.Reply, "disconnected due to inactivity")
		// The disconnect notice is not appended to the transcript.
		assert.Len(t, out.Session.Transcript, before)
	})

	t.Run("wins_over_goodbye", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 1, rules.MatchSubstring)
		sess := activeSession()
		before := len(sess.Transcript)

		out, err := r.Resolve(sess, "Alice", "bye", 0)
		require.NoError(t, err)

		// The goodbye text is never inspected for this turn.
		assert.True(t, out.EndChat)
		assert.Contains(t, out.Reply, "disconnected")
		assert.Len(t, out.Session.Transcript, before)
	})

	t.Run("never_fires_at_zero", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 0, rules.MatchSubstring)
		for range 50 {
			sess := activeSession()
			out, err := r.Resolve(sess, "Alice", "tell me something", 0)
			require.NoError(t, err)
			assert.False(t, out.EndChat)
		}
	})
}

func TestResolve_Goodbye(t *testing.T) {
	t.Parallel()

	t.Run("end_keyword_token", func(t *testing.T) {
		t.Parallel()

		for _, message := range []string{"bye", "ok goodbye then", "exit", "I QUIT"} {
			r := newResolver(t, 0, rules.MatchSubstring)
			sess := activeSession()
			before := len(sess.Transcript)

			out, err := r.Resolve(sess, "Alice", message, 0)
			require.NoError(t, err)

			assert.True(t, out.Session.Ended)
			assert.True(t, out.EndChat)
			assert.Equal(t, "Goodbye Alice, take care!", out.Reply)

			// User message then agent reply, in that order.
			require.Len(t, out.Session.Transcript, before+2)
			assert.Equal(t, "Alice", out.Session.Transcript[before].Speaker)
			assert.Equal(t, message, out.Session.Transcript[before].Text)
			assert.Equal(t, "Vera", out.Session.Transcript[before+1].Speaker)
		}
	})

	t.Run("end_keyword_inside_word_does_not_end", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 0, rules.MatchSubstring)
		sess := activeSession()

		out, err := r.Resolve(sess, "Alice", "goodbyeish weather today", 0)
		require.NoError(t, err)

		assert.False(t, out.Session.Ended)
		assert.False(t, out.EndChat)
	})
}

func TestResolve_KeywordMatching(t *testing.T) {
	t.Parallel()

	t.Run("single_match", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 0, rules.MatchSubstring)
		sess := activeSession()
		before := len(sess.Transcript)

		out, err := r.Resolve(sess, "Alice", "I need a refund", 0)
		require.NoError(t, err)

		assert.Equal(t, "I can help with your refund, Alice.", out.Reply)
		require.Len(t, out.Session.Transcript, before+2)
		assert.Equal(t, "I need a refund", out.Session.Transcript[before].Text)
		assert.Equal(t, out.Reply, out.Session.Transcript[before+1].Text)
	})

	t.Run("multiple_matches_join_in_rule_order", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 0, rules.MatchSubstring)
		sess := activeSession()

		out, err := r.Resolve(sess, "Alice", "I want a refund and hello", 0)
		require.NoError(t, err)

		// "refund" precedes "hello" in the rule set, so its reply comes first.
		assert.Equal(t, "I can help with your refund, Alice. Hello from Vera!", out.Reply)
	})

	t.Run("substring_matches_inside_words", func(t *testing.T) {
		t.Parallel()

		set := testRules()
		set.Rules = append(set.Rules, rules.Rule{Keyword: "hi", Replies: []string{"Hi!"}})
		r := engine.New(set, rand.New(rand.NewSource(1)), 0, rules.MatchSubstring)
		sess := activeSession()

		out, err := r.Resolve(sess, "Alice", "this thing broke", 0)
		require.NoError(t, err)

		// "hi" matches inside "this" / "thing" under the substring strategy.
		assert.Equal(t, "Hi!", out.Reply)
	})

	t.Run("greetings_entry_matches_like_any_rule", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 0, rules.MatchSubstring)
		sess := activeSession()

		out, err := r.Resolve(sess, "Alice", "greetings everyone", 0)
		require.NoError(t, err)

		assert.Equal(t, "Greetings, Alice!", out.Reply)
		assert.False(t, out.EndChat)
	})

	t.Run("quit_entry_matches_without_ending", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 0, rules.MatchSubstring)
		sess := activeSession()

		// "quite" contains "quit" but is not an end keyword token, so the
		// quit rule replies like any other rule and the chat stays open.
		out, err := r.Resolve(sess, "Alice", "that was quite good", 0)
		require.NoError(t, err)

		assert.Equal(t, "Goodbye Alice, take care!", out.Reply)
		assert.False(t, out.EndChat)
		assert.False(t, out.Session.Ended)
	})

	t.Run("token_strategy_ignores_embedded_keywords", func(t *testing.T) {
		t.Parallel()

		set := testRules()
		set.Rules = append(set.Rules, rules.Rule{Keyword: "hi", Replies: []string{"Hi!"}})
		r := engine.New(set, rand.New(rand.NewSource(1)), 0, rules.MatchToken)
		sess := activeSession()

		out, err := r.Resolve(sess, "Alice", "this thing broke", 0)
		require.NoError(t, err)

		assert.Equal(t, "Could you tell me more?", out.Reply)
	})
}

func TestResolve_Fallbacks(t *testing.T) {
	t.Parallel()

	t.Run("greeting_fallback_when_no_rule_matched", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 0, rules.MatchToken)
		sess := activeSession()

		out, err := r.Resolve(sess, "Alice", "how are you doing", 0)
		require.NoError(t, err)

		assert.Equal(t, "Greetings, Alice!", out.Reply)
	})

	t.Run("generic_fallback", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, 0, rules.MatchToken)
		sess := activeSession()

		out, err := r.Resolve(sess, "Alice", "xyzzy plugh", 0)
		require.NoError(t, err)

		assert.Equal(t, "Could you tell me more?", out.Reply)
	})
}

func TestResolve_DeterministicUnderFixedSeed(t *testing.T) {
	t.Parallel()

	set := testRules()
	set.AgentNames = []string{"Vera", "Milo", "Iris", "Noor"}

	a := engine.New(set, rand.New(rand.NewSource(99)), 0, rules.MatchSubstring)
	b := engine.New(set, rand.New(rand.NewSource(99)), 0, rules.MatchSubstring)

	outA, err := a.Resolve(nil, "Alice", "", 1)
	require.NoError(t, err)
	outB, err := b.Resolve(nil, "Alice", "", 1)
	require.NoError(t, err)

	assert.Equal(t, outA.Session.AgentName, outB.Session.AgentName)
	assert.Equal(t, outA.Reply, outB.Reply)
}
