// Package session pairs a live transcript with its persistence target and
// switches between sessions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/petasbytes/go-agent/internal/persist"
	"github.com/petasbytes/go-agent/internal/transcript"
	"github.com/petasbytes/go-agent/memory"
	"github.com/petasbytes/go-agent/tools"
)

// Session is one conversation: its transcript, plan, and toolset. ID is empty
// when the record could not be created and the session is not persisted.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Transcript *transcript.Store
	Plan       *tools.Plan
	Tools      *tools.Registry

	writer *persist.Writer
}

func (s *Session) Persisted() bool { return s.writer != nil }

// Flush waits for every write scheduled so far.
func (s *Session) Flush(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Flush(ctx)
}

type Options struct {
	SystemPrompt string
	Tools        tools.Options
	Logger       *zap.Logger
}

// Manager owns the current session. The store is owned by the caller.
type Manager struct {
	store memory.Store
	opts  Options
	log   *zap.Logger
	now   func() time.Time

	mu  sync.Mutex
	cur *Session
}

func NewManager(store memory.Store, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, opts: opts, log: log, now: time.Now}
}

// New starts a fresh session and makes it current. If the record cannot be
// created the session still starts, without persistence.
func (m *Manager) New(ctx context.Context) (*Session, error) {
	msgs := transcript.DefaultMessages(m.opts.SystemPrompt)
	info, err := m.store.Create(ctx, msgs)
	if err != nil {
		m.log.Warn("session: failed to create record; continuing without persistence", zap.Error(err))
		return m.activate(ctx, "", m.now(), msgs), nil
	}
	m.log.Info("session: created", zap.String("session", info.ID))
	return m.activate(ctx, info.ID, info.CreatedAt, msgs), nil
}

// Resume loads id and makes it current. On error the current session is unchanged.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", id, err)
	}
	msgs := rec.Messages
	if len(msgs) == 0 {
		msgs = transcript.DefaultMessages(m.opts.SystemPrompt)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = m.now()
	}
	m.log.Info("session: resumed", zap.String("session", id), zap.Int("messages", len(msgs)))
	return m.activate(ctx, id, createdAt, msgs), nil
}

// activate builds a session around msgs, wires its writer, and swaps it in.
// The previous session's writer is drained and closed after the swap.
func (m *Manager) activate(ctx context.Context, id string, createdAt time.Time, msgs []transcript.Message) *Session {
	plan := tools.NewPlan()
	s := &Session{
		ID:         id,
		CreatedAt:  createdAt,
		Transcript: transcript.New(m.opts.SystemPrompt),
		Plan:       plan,
		Tools:      tools.Default(plan, m.opts.Tools),
	}
	s.Transcript.ResetMessages(msgs)
	if id != "" {
		target := memory.Target{Store: m.store, ID: id, CreatedAt: createdAt}
		s.writer = persist.NewWriter(id, target, s.Transcript, m.log)
		s.Transcript.OnMutate(s.writer.Notify)
	}

	m.mu.Lock()
	prev := m.cur
	m.cur = s
	m.mu.Unlock()

	m.closeSession(ctx, prev)
	return s
}

// Current returns the active session, or nil before the first New or Resume.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

func (m *Manager) List(ctx context.Context) ([]memory.Info, error) {
	return m.store.List(ctx)
}

// Close drains and stops the current session's writer.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	cur := m.cur
	m.cur = nil
	m.mu.Unlock()
	return m.closeSession(ctx, cur)
}

func (m *Manager) closeSession(ctx context.Context, s *Session) error {
	if s == nil || s.writer == nil {
		return nil
	}
	s.Transcript.OnMutate(nil)
	if err := s.writer.Close(ctx); err != nil {
		m.log.Warn("session: pending writes abandoned", zap.String("session", s.ID), zap.Error(err))
		return err
	}
	return nil
}
