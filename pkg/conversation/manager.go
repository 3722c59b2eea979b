package conversation

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/llm"
	"ai-consultation-be/pkg/reasoning"
	"ai-consultation-be/pkg/research"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	logModule = "SESSION"

	defaultLookupLimit    = 3
	defaultMaxLookupChars = 5000
)

// Store persists sessions by id. Implementations must be safe for concurrent
// use; the Manager serializes access per id on top of it.
type Store interface {
	Get(ctx context.Context, id string) (*consultation.Session, bool, error)
	Put(ctx context.Context, s *consultation.Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

// Researcher is the web research dependency.
type Researcher interface {
	Research(ctx context.Context, topics []string, limit int) ([]consultation.ResearchFinding, error)
}

// Retrier runs op, retrying transient failures as it sees fit.
type Retrier func(ctx context.Context, op func() error) error

// Reply is the result of one Continue call.
type Reply struct {
	SessionID    string
	Text         string
	TurnCount    int
	FindingsUsed int
	Created      bool
}

type Config struct {
	IdleTTL        time.Duration
	System         string
	LookupPrompt   string // fmt template: query, research context
	LookupLimit    int
	MaxLookupChars int
}

// Manager owns session lifecycle: creation, continuation and eviction.
// Calls for the same id are serialized; different ids never share a lock.
type Manager struct {
	store    Store
	gateway  *reasoning.Gateway
	research Researcher
	policy   LookupPolicy
	cfg      Config
	locks    *keyedLocker
	logger   consultation.Logger
	retry    Retrier
	now      func() time.Time
	newID    func() string
	onEvict  func(ctx context.Context, s *consultation.Session)
}

type Option func(*Manager)

func WithResearcher(r Researcher) Option {
	return func(m *Manager) { m.research = r }
}

func WithLookupPolicy(p LookupPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

func WithLogger(l consultation.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithRetrier(r Retrier) Option {
	return func(m *Manager) { m.retry = r }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// WithEvictionHook is called, under the session lock, for every swept session.
func WithEvictionHook(fn func(ctx context.Context, s *consultation.Session)) Option {
	return func(m *Manager) { m.onEvict = fn }
}

func NewManager(store Store, gateway *reasoning.Gateway, cfg Config, opts ...Option) *Manager {
	if cfg.LookupLimit <= 0 {
		cfg.LookupLimit = defaultLookupLimit
	}
	if cfg.MaxLookupChars <= 0 {
		cfg.MaxLookupChars = defaultMaxLookupChars
	}
	m := &Manager{
		store:   store,
		gateway: gateway,
		policy:  NeverLookup{},
		cfg:     cfg,
		locks:   newKeyedLocker(),
		logger:  consultation.NopLogger{},
		retry:   func(_ context.Context, op func() error) error { return op() },
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the session for id, creating an empty one if unseen.
// A blank id gets a freshly minted one.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*consultation.Session, error) {
	id = m.resolveID(id)
	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, _, err := m.loadOrNew(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess.Clone(), nil
}

// Get returns a copy of an existing session.
func (m *Manager) Get(ctx context.Context, id string) (*consultation.Session, error) {
	sess, found, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, consultation.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// AppendTurn adds one turn to an existing session.
func (m *Manager) AppendTurn(ctx context.Context, id string, turn consultation.Turn) error {
	if turn.Role != consultation.RoleUser && turn.Role != consultation.RoleAssistant {
		return fmt.Errorf("invalid turn role %q", turn.Role)
	}
	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	sess, found, err := m.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !found {
		return consultation.ErrSessionNotFound
	}

	work := sess.Clone()
	turn.Timestamp = nextTimestamp(work.Turns, turn.Timestamp, m.now)
	work.Turns = append(work.Turns, turn)
	work.LastAccess = turn.Timestamp
	if err := m.store.Put(ctx, work); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Continue appends the user query and the assistant's answer to the session.
// The session is written only after the answer is in hand; a failed or
// cancelled call leaves it untouched.
func (m *Manager) Continue(ctx context.Context, id, query string) (Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{}, consultation.ErrEmptyInput
	}
	id = m.resolveID(id)

	ctx, span := otel.Tracer("conversation").Start(ctx, "manager.continue")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return Reply{}, err
	}
	defer unlock()

	sess, created, err := m.loadOrNew(ctx, id)
	if err != nil {
		return Reply{}, err
	}
	work := sess.Clone()

	prompt, findingsUsed := m.augment(ctx, query, work.Turns)

	var answer string
	err = m.retry(ctx, func() error {
		text, err := m.gateway.CompleteText(ctx, reasoning.Request{
			System:  m.cfg.System,
			History: toMessages(work.Turns),
			Prompt:  prompt,
		})
		if err != nil {
			return err
		}
		answer = text
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Reply{}, fmt.Errorf("%w: empty assistant reply", consultation.ErrMalformedResponse)
	}
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	userTurn := consultation.Turn{Role: consultation.RoleUser, Text: query}
	userTurn.Timestamp = nextTimestamp(work.Turns, time.Time{}, m.now)
	work.Turns = append(work.Turns, userTurn)

	assistantTurn := consultation.Turn{Role: consultation.RoleAssistant, Text: answer}
	assistantTurn.Timestamp = nextTimestamp(work.Turns, time.Time{}, m.now)
	work.Turns = append(work.Turns, assistantTurn)
	work.LastAccess = assistantTurn.Timestamp

	if err := m.store.Put(ctx, work); err != nil {
		return Reply{}, fmt.Errorf("save session: %w", err)
	}

	m.logger.Info(logModule, "Conversation continued", map[string]interface{}{
		"session_id":    id,
		"turns":         len(work.Turns),
		"created":       created,
		"findings_used": findingsUsed,
	})
	return Reply{SessionID: id, Text: answer, TurnCount: len(work.Turns), FindingsUsed: findingsUsed, Created: created}, nil
}

// augment wraps the query with research context when the policy asks for it.
// Research problems only cost the context, never the reply.
func (m *Manager) augment(ctx context.Context, query string, history []consultation.Turn) (string, int) {
	if m.research == nil || m.policy == nil || !m.policy.NeedsLookup(ctx, query, history) {
		return query, 0
	}

	findings, err := m.research.Research(ctx, []string{query}, m.cfg.LookupLimit)
	if err != nil {
		m.logger.Warn(logModule, "Lookup failed, answering without it", map[string]interface{}{"error": err.Error()})
		return query, 0
	}
	digest := research.Digest(findings, m.cfg.MaxLookupChars)
	if digest == "" || m.cfg.LookupPrompt == "" {
		return query, 0
	}
	return fmt.Sprintf(m.cfg.LookupPrompt, query, digest), len(findings)
}

// Sweep deletes sessions idle for at least IdleTTL and returns their ids.
// Each candidate is re-read under its lock so an in-flight Continue wins.
func (m *Manager) Sweep(ctx context.Context) ([]string, error) {
	if m.cfg.IdleTTL <= 0 {
		return nil, nil
	}
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var evicted []string
	for _, id := range ids {
		ok, err := m.evictIfIdle(ctx, id)
		if err != nil {
			return evicted, err
		}
		if ok {
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		m.logger.Info(logModule, "Idle sessions evicted", map[string]interface{}{"count": len(evicted), "scanned": len(ids)})
	}
	return evicted, nil
}

func (m *Manager) evictIfIdle(ctx context.Context, id string) (bool, error) {
	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	sess, found, err := m.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if !found || !sess.Expired(m.now(), m.cfg.IdleTTL) {
		return false, nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if m.onEvict != nil {
		m.onEvict(ctx, sess)
	}
	return true, nil
}

func (m *Manager) resolveID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return m.newID()
}

func (m *Manager) loadOrNew(ctx context.Context, id string) (*consultation.Session, bool, error) {
	sess, found, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	if found {
		return sess, false, nil
	}
	now := m.now()
	return &consultation.Session{ID: id, Turns: []consultation.Turn{}, CreatedAt: now, LastAccess: now}, true, nil
}

// nextTimestamp returns want (or now when zero), pushed past the last turn so
// timestamps stay strictly increasing.
func nextTimestamp(turns []consultation.Turn, want time.Time, now func() time.Time) time.Time {
	if want.IsZero() {
		want = now()
	}
	want = want.Round(0)
	if n := len(turns); n > 0 {
		if last := turns[n-1].Timestamp; !want.After(last) {
			want = last.Add(time.Microsecond)
		}
	}
	return want
}

func toMessages(turns []consultation.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == consultation.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	return msgs
}
