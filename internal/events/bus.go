// Package events is the in-process signal bus shared by one search session.
package events

import (
	"sync"

	"github.com/rs/zerolog/log"

	"impacttrip/internal/adapters/observability"
	"impacttrip/internal/domain"
)

type Type int

const (
	// FiltersChanged asks every view to recompute. Criteria is set when the
	// signal comes from a criteria submit.
	FiltersChanged Type = iota
	// CriteriaApplied carries the validated criteria of a successful submit.
	CriteriaApplied
	// ItemSelected carries the catalog item the user picked.
	ItemSelected
	// CriteriaEdited follows a single field edit that booking links depend on
	// (dates, adults). Criteria and Field are set. It does not recompute lanes.
	CriteriaEdited
)

func (t Type) String() string {
	switch t {
	case FiltersChanged:
		return "filters_changed"
	case CriteriaApplied:
		return "criteria_applied"
	case ItemSelected:
		return "item_selected"
	case CriteriaEdited:
		return "criteria_edited"
	}
	return "unknown"
}

type Event struct {
	Type     Type
	Criteria *domain.SearchCriteria
	Item     *domain.CatalogItem
	Field    string
}

type Handler func(Event)

type subscription struct {
	id int
	h  Handler
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine. Handlers may publish again.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Type][]subscription
}

func New() *Bus {
	return &Bus{subs: make(map[Type][]subscription)}
}

// Subscribe registers h and returns a func that removes it.
func (b *Bus) Subscribe(t Type, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[t]
			for i, s := range list {
				if s.id == id {
					b.subs[t] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type]))
	for _, s := range b.subs[e.Type] {
		handlers = append(handlers, s.h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(e, h)
	}
}

func (b *Bus) deliver(e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("event", e.Type.String()).Interface("panic", r).Msg("event handler panicked")
		}
	}()
	h(e)
}

// Listen exposes events of type t on a buffered channel for consumers that
// live outside the publishing goroutine. Sends never block; events that do
// not fit are dropped and counted.
func (b *Bus) Listen(t Type, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	var mu sync.Mutex
	closed := false
	unsub := b.Subscribe(t, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			observability.ObserveBusDrop(t.String())
		}
	})
	return ch, func() {
		unsub()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}
