package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"impacttrip/internal/adapters/observability"
	"impacttrip/internal/domain"
	"impacttrip/internal/events"
)

type LaneRenderer interface {
	RenderLanes(lanes []domain.Lane)
}

type EngineConfig struct {
	Lanes   []string
	Gallery []string
}

func (c EngineConfig) withDefaults() EngineConfig {
	if len(c.Lanes) == 0 {
		c.Lanes = DefaultLanes
	}
	if c.Gallery == nil {
		c.Gallery = DefaultPromoGallery
	}
	return c
}

// Engine owns a session's catalog snapshot and recomputes the lanes on every
// FiltersChanged signal.
type Engine struct {
	cfg      EngineConfig
	source   domain.CatalogSource
	facets   *FacetState
	bus      *events.Bus
	renderer LaneRenderer

	mu       sync.RWMutex
	snapshot []domain.CatalogItem
	index    map[string]int
	lanes    []domain.Lane
}

func NewEngine(cfg EngineConfig, src domain.CatalogSource, facets *FacetState, bus *events.Bus, r LaneRenderer) *Engine {
	return &Engine{
		cfg:      cfg.withDefaults(),
		source:   src,
		facets:   facets,
		bus:      bus,
		renderer: r,
		index:    map[string]int{},
	}
}

// Load fetches the snapshot and renders it. On a fetch failure the snapshot
// is empty, empty lanes are rendered and the error is returned.
func (e *Engine) Load(ctx context.Context) error {
	items, err := e.source.Opportunities(ctx)
	if err != nil {
		log.Error().Err(err).Msg("catalog load failed")
		items = nil
	}

	idx := make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := idx[it.ID]; dup {
			log.Warn().Str("id", it.ID).Int("position", i).Msg("duplicate catalog id ignored for lookup")
			continue
		}
		idx[it.ID] = i
	}

	e.mu.Lock()
	e.snapshot = items
	e.index = idx
	e.mu.Unlock()

	e.recompute("load")
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	return nil
}

// Start subscribes the engine to FiltersChanged.
func (e *Engine) Start() func() {
	return e.bus.Subscribe(events.FiltersChanged, func(events.Event) {
		e.recompute("filters_changed")
	})
}

func (e *Engine) Recompute() []domain.Lane { return e.recompute("manual") }

func (e *Engine) recompute(trigger string) []domain.Lane {
	e.mu.RLock()
	snap := e.snapshot
	e.mu.RUnlock()

	lanes := Compose(snap, e.facets.Snapshot(), e.cfg.Lanes, e.cfg.Gallery)
	passing := 0
	for _, l := range lanes {
		for _, en := range l.Entries {
			if en.Kind == domain.EntryItem {
				passing++
			}
		}
	}
	observability.ObserveRecompute(trigger, passing)

	e.mu.Lock()
	e.lanes = lanes
	e.mu.Unlock()

	if e.renderer != nil {
		e.renderer.RenderLanes(lanes)
	}
	return lanes
}

// Lanes returns the last composed lanes.
func (e *Engine) Lanes() []domain.Lane {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lanes
}

func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.snapshot)
}

func (e *Engine) Item(id string) (domain.CatalogItem, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.index[id]
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return e.snapshot[i], nil
}

// Select publishes ItemSelected for a known item.
func (e *Engine) Select(id string) (domain.CatalogItem, error) {
	it, err := e.Item(id)
	if err != nil {
		return it, err
	}
	cp := it
	e.bus.Publish(events.Event{Type: events.ItemSelected, Item: &cp})
	return it, nil
}
