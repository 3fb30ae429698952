package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"impacttrip/internal/adapters/observability"
	"impacttrip/internal/domain"
	"impacttrip/internal/events"
)

// SessionHook is called for every new session; the returned func, if any,
// runs when the session closes.
type SessionHook func(*Session) func()

// Session is one search page: its own bus, criteria, facets and views.
// Use Do to run operations; they are serialized per session.
type Session struct {
	ID     string
	Bus    *events.Bus
	Store  *CriteriaStore
	Form   *FormController
	Facets *FacetState
	Engine *Engine
	Hotels *HotelPanel
	Frame  *FrameRecorder

	mu     sync.Mutex
	unsubs []func()
}

func (s *Session) Do(fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.unsubs) - 1; i >= 0; i-- {
		s.unsubs[i]()
	}
	s.unsubs = nil
}

type SessionManager struct {
	kv     domain.KV
	source domain.CatalogSource
	cfg    EngineConfig
	now    func() time.Time
	hooks  []SessionHook

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(kv domain.KV, src domain.CatalogSource, cfg EngineConfig, now func() time.Time, hooks ...SessionHook) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{kv: kv, source: src, cfg: cfg, now: now, hooks: hooks, sessions: map[string]*Session{}}
}

// Open returns the live session for id or builds it, restoring criteria from
// the KV. An empty id starts a new session; a malformed id is ErrNotFound.
func (m *SessionManager) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = uuid.New().String()
	} else if u, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	} else {
		id = u.String()
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	s := m.build(ctx, id)

	m.mu.Lock()
	if cur, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.close()
		return cur, nil
	}
	m.sessions[id] = s
	observability.Sessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	return s, nil
}

func (m *SessionManager) build(ctx context.Context, id string) *Session {
	bus := events.New()
	frame := NewFrameRecorder()
	store := NewCriteriaStore(ctx, m.kv, CriteriaKey(id))
	facets := NewFacetState(bus)
	s := &Session{
		ID:     id,
		Bus:    bus,
		Store:  store,
		Form:   NewFormController(store, bus, frame, m.now),
		Facets: facets,
		Engine: NewEngine(m.cfg, m.source, facets, bus, frame),
		Hotels: NewHotelPanel(m.source, store, bus, frame),
		Frame:  frame,
	}
	s.unsubs = append(s.unsubs,
		s.Engine.Start(),
		s.Hotels.Start(),
		bus.Subscribe(events.ItemSelected, func(e events.Event) {
			if e.Item != nil {
				frame.OpenDetail(*e.Item)
			}
		}),
	)
	for _, h := range m.hooks {
		if stop := h(s); stop != nil {
			s.unsubs = append(s.unsubs, stop)
		}
	}

	s.Form.Start(ctx)

	var g errgroup.Group
	g.Go(func() error { return s.Engine.Load(ctx) })
	g.Go(func() error { return s.Hotels.Load(ctx) })
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Str("session", id).Msg("session opened with a degraded catalog")
	}
	return s
}

func (m *SessionManager) Close(id string) error {
	if u, err := uuid.Parse(id); err == nil {
		id = u.String()
	}
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		observability.Sessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	s.close()
	return nil
}

func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = map[string]*Session{}
	observability.Sessions.Set(0)
	m.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
