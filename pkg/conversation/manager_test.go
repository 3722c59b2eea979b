package conversation

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/llm"
	"ai-consultation-be/pkg/llm/llmtest"
	"ai-consultation-be/pkg/reasoning"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	mu       sync.Mutex
	sessions map[string]*consultation.Session
	puts     int
}

func newMapStore() *mapStore {
	return &mapStore{sessions: make(map[string]*consultation.Session)}
}

func (s *mapStore) Get(_ context.Context, id string) (*consultation.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	return sess.Clone(), true, nil
}

func (s *mapStore) Put(_ context.Context, sess *consultation.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *mapStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *mapStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type stubResearcher struct {
	findings []consultation.ResearchFinding
	err      error
	calls    int
}

func (r *stubResearcher) Research(context.Context, []string, int) ([]consultation.ResearchFinding, error) {
	r.calls++
	return r.findings, r.err
}

// fixedClock advances one second per reading.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func echoProvider() *llmtest.Provider {
	return &llmtest.Provider{Respond: func(_ context.Context, history []llm.Message, _ llm.Options) (string, error) {
		return "answer to: " + history[len(history)-1].Content, nil
	}}
}

func newTestManager(provider llm.LLMProvider, store Store, opts ...Option) *Manager {
	gw := reasoning.NewGateway(provider, nil)
	cfg := Config{IdleTTL: time.Hour, System: "persona", LookupPrompt: "Q: %s\nCONTEXT:\n%s"}
	opts = append([]Option{WithClock(fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))}, opts...)
	return NewManager(store, gw, cfg, opts...)
}

func TestContinueCreatesAndThreadsHistory(t *testing.T) {
	provider := llmtest.Texts("Likely contact dermatitis.", "Avoid the new detergent for a week.")
	store := newMapStore()
	m := newTestManager(provider, store)
	ctx := context.Background()

	first, err := m.Continue(ctx, "session-42", "Itchy red rash after new detergent")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "session-42", first.SessionID)
	assert.Equal(t, 2, first.TurnCount)

	second, err := m.Continue(ctx, "session-42", "What should I do now?")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, 4, second.TurnCount)
	assert.Equal(t, "Avoid the new detergent for a week.", second.Text)

	// second call sees: system, user, assistant, new user
	hist := provider.LastCall().History
	require.Len(t, hist, 4)
	assert.Equal(t, llm.RoleSystem, hist[0].Role)
	assert.Equal(t, "Itchy red rash after new detergent", hist[1].Content)
	assert.Equal(t, llm.RoleAssistant, hist[2].Role)
	assert.Equal(t, "Likely contact dermatitis.", hist[2].Content)
	assert.Equal(t, "What should I do now?", hist[3].Content)
}

func TestContinueAlternatesTurnsWithIncreasingTimestamps(t *testing.T) {
	store := newMapStore()
	m := newTestManager(echoProvider(), store)
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		_, err := m.Continue(ctx, "s1", fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	sess, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2*n)
	for i, turn := range sess.Turns {
		want := consultation.RoleUser
		if i%2 == 1 {
			want = consultation.RoleAssistant
		}
		assert.Equal(t, want, turn.Role, "turn %d", i)
		if i > 0 {
			assert.True(t, turn.Timestamp.After(sess.Turns[i-1].Timestamp), "turn %d not after previous", i)
		}
	}
	assert.Equal(t, sess.Turns[len(sess.Turns)-1].Timestamp, sess.LastAccess)
}

func TestContinueBlankIDMintsOne(t *testing.T) {
	m := newTestManager(echoProvider(), newMapStore(), WithIDGenerator(func() string { return "minted" }))

	r, err := m.Continue(context.Background(), "  ", "hello")
	require.NoError(t, err)
	assert.Equal(t, "minted", r.SessionID)
	assert.True(t, r.Created)
}

func TestContinueRejectsEmptyQuery(t *testing.T) {
	provider := echoProvider()
	m := newTestManager(provider, newMapStore())

	_, err := m.Continue(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, consultation.ErrEmptyInput)
	assert.Zero(t, provider.CallCount())
}

func TestContinueFailureLeavesSessionUnchanged(t *testing.T) {
	store := newMapStore()
	provider := llmtest.New(
		llmtest.Reply{Text: "first answer"},
		llmtest.Reply{Err: errors.New("connection reset")},
		llmtest.Reply{Text: "   "},
	)
	m := newTestManager(provider, store)
	ctx := context.Background()

	_, err := m.Continue(ctx, "s1", "first")
	require.NoError(t, err)

	_, err = m.Continue(ctx, "s1", "second")
	assert.ErrorIs(t, err, consultation.ErrUpstreamUnavailable)

	_, err = m.Continue(ctx, "s1", "third")
	assert.ErrorIs(t, err, consultation.ErrMalformedResponse)

	sess, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 2)
}

func TestContinueCancelledLeavesSessionUnchanged(t *testing.T) {
	store := newMapStore()
	ctx, cancel := context.WithCancel(context.Background())
	provider := &llmtest.Provider{Respond: func(context.Context, []llm.Message, llm.Options) (string, error) {
		cancel()
		return "too late", nil
	}}
	m := newTestManager(provider, store)
	require.NoError(t, store.Put(context.Background(), &consultation.Session{ID: "s1", Turns: []consultation.Turn{}}))

	_, err := m.Continue(ctx, "s1", "hello")
	assert.ErrorIs(t, err, context.Canceled)

	sess, err := m.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, sess.Turns)
}

func TestContinueSameIDSerializes(t *testing.T) {
	store := newMapStore()
	m := newTestManager(echoProvider(), store)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Continue(ctx, "shared", fmt.Sprintf("q%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sess, err := m.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 2*workers)
	for i := 0; i < len(sess.Turns); i += 2 {
		assert.Equal(t, "answer to: "+sess.Turns[i].Text, sess.Turns[i+1].Text)
	}
	assert.Zero(t, m.locks.size())
}

func TestContinueDistinctIDsDoNotBlock(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	provider := &llmtest.Provider{Respond: func(_ context.Context, history []llm.Message, _ llm.Options) (string, error) {
		if history[len(history)-1].Content == "slow" {
			entered <- struct{}{}
			<-release
		}
		return "ok", nil
	}}
	m := newTestManager(provider, newMapStore())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := m.Continue(ctx, "a", "slow")
		done <- err
	}()
	<-entered

	// "b" completes while "a" is still holding its lock
	_, err := m.Continue(ctx, "b", "fast")
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
}

func TestContinueLookup(t *testing.T) {
	findings := []consultation.ResearchFinding{{Title: "Dermatitis", SourceURL: "https://example.org/d", Snippet: "Contact dermatitis is...", Rank: 1}}

	t.Run("always", func(t *testing.T) {
		provider := echoProvider()
		researcher := &stubResearcher{findings: findings}
		m := newTestManager(provider, newMapStore(), WithResearcher(researcher), WithLookupPolicy(AlwaysLookup{}))

		r, err := m.Continue(context.Background(), "s1", "rash")
		require.NoError(t, err)
		assert.Equal(t, 1, r.FindingsUsed)
		prompt := provider.LastCall().History[len(provider.LastCall().History)-1].Content
		assert.True(t, strings.HasPrefix(prompt, "Q: rash\nCONTEXT:"))
		assert.Contains(t, prompt, "https://example.org/d")

		// the stored turn is the bare query
		sess, err := m.Get(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, "rash", sess.Turns[0].Text)
	})

	t.Run("research failure answers without context", func(t *testing.T) {
		provider := echoProvider()
		researcher := &stubResearcher{err: consultation.ErrUpstreamUnavailable}
		m := newTestManager(provider, newMapStore(), WithResearcher(researcher), WithLookupPolicy(AlwaysLookup{}))

		r, err := m.Continue(context.Background(), "s1", "rash")
		require.NoError(t, err)
		assert.Equal(t, 0, r.FindingsUsed)
		assert.Equal(t, "answer to: rash", r.Text)
	})

	t.Run("never", func(t *testing.T) {
		researcher := &stubResearcher{findings: findings}
		m := newTestManager(echoProvider(), newMapStore(), WithResearcher(researcher), WithLookupPolicy(NeverLookup{}))

		_, err := m.Continue(context.Background(), "s1", "rash")
		require.NoError(t, err)
		assert.Zero(t, researcher.calls)
	})
}

func TestAppendTurn(t *testing.T) {
	store := newMapStore()
	m := newTestManager(echoProvider(), store)
	ctx := context.Background()

	err := m.AppendTurn(ctx, "missing", consultation.Turn{Role: consultation.RoleUser, Text: "hi"})
	assert.ErrorIs(t, err, consultation.ErrSessionNotFound)

	_, err = m.GetOrCreate(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, m.AppendTurn(ctx, "s1", consultation.Turn{Role: consultation.RoleUser, Text: "hi"}))
	// a stale timestamp is pushed past the previous turn
	require.NoError(t, m.AppendTurn(ctx, "s1", consultation.Turn{Role: consultation.RoleAssistant, Text: "hello", Timestamp: time.Unix(0, 0)}))

	sess, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2)
	assert.True(t, sess.Turns[1].Timestamp.After(sess.Turns[0].Timestamp))

	err = m.AppendTurn(ctx, "s1", consultation.Turn{Role: "system", Text: "x"})
	assert.Error(t, err)
}

func TestGetUnknownSession(t *testing.T) {
	m := newTestManager(echoProvider(), newMapStore())
	_, err := m.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, consultation.ErrSessionNotFound)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	store := newMapStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(context.Background(), &consultation.Session{ID: "old", LastAccess: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.Put(context.Background(), &consultation.Session{ID: "fresh", LastAccess: now.Add(-time.Minute)}))

	var evictedSessions []string
	m := NewManager(store, reasoning.NewGateway(echoProvider(), nil), Config{IdleTTL: time.Hour},
		WithClock(func() time.Time { return now }),
		WithEvictionHook(func(_ context.Context, s *consultation.Session) { evictedSessions = append(evictedSessions, s.ID) }),
	)

	evicted, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, []string{"old"}, evictedSessions)

	ids, _ := store.List(context.Background())
	assert.Equal(t, []string{"fresh"}, ids)
}

func TestExpiredSessionIsContinuableUntilSwept(t *testing.T) {
	store := newMapStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(context.Background(), &consultation.Session{
		ID:         "idle",
		Turns:      []consultation.Turn{{Role: consultation.RoleUser, Text: "old q", Timestamp: now.Add(-3 * time.Hour)}},
		LastAccess: now.Add(-3 * time.Hour),
	}))
	m := NewManager(store, reasoning.NewGateway(echoProvider(), nil), Config{IdleTTL: time.Hour}, WithClock(func() time.Time { return now }))

	r, err := m.Continue(context.Background(), "idle", "still there?")
	require.NoError(t, err)
	assert.False(t, r.Created)
	assert.Equal(t, 3, r.TurnCount)

	evicted, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, evicted)
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	store := newMapStore()
	require.NoError(t, store.Put(context.Background(), &consultation.Session{ID: "x"}))
	m := NewManager(store, reasoning.NewGateway(echoProvider(), nil), Config{})

	evicted, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, evicted)
}

func TestRetrierWrapsGatewayCall(t *testing.T) {
	provider := llmtest.New(llmtest.Reply{Err: errors.New("503")}, llmtest.Reply{Text: "recovered"})
	retry := func(ctx context.Context, op func() error) error {
		var err error
		for i := 0; i < 3; i++ {
			if err = op(); err == nil {
				return nil
			}
		}
		return err
	}
	m := newTestManager(provider, newMapStore(), WithRetrier(retry))

	r, err := m.Continue(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", r.Text)
	assert.Equal(t, 2, provider.CallCount())
}
