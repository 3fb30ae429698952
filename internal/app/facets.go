package app

import (
	"strings"
	"sync"

	"impacttrip/internal/domain"
	"impacttrip/internal/events"
)

// FacetState holds the active facet selection of one session. Readers get
// immutable snapshots; every successful mutation publishes FiltersChanged.
type FacetState struct {
	bus *events.Bus

	mu  sync.RWMutex
	sel domain.FacetSelection
}

func NewFacetState(bus *events.Bus) *FacetState {
	return &FacetState{bus: bus, sel: domain.DefaultFacets()}
}

func (f *FacetState) Snapshot() domain.FacetSelection {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sel
}

// ToggleLanguage flips a concrete token or collapses to "Any". A blank token
// changes nothing and publishes nothing.
func (f *FacetState) ToggleLanguage(token string) domain.FacetSelection {
	return f.mutate(func(s domain.FacetSelection) (domain.FacetSelection, bool) {
		if strings.TrimSpace(token) == "" {
			return s, false
		}
		return s.WithLanguageToggled(token), true
	})
}

func (f *FacetState) SetAny() domain.FacetSelection {
	return f.mutate(func(s domain.FacetSelection) (domain.FacetSelection, bool) {
		return s.WithAny(), true
	})
}

// SetDuration selects a duration bucket; an unknown bucket is an error and
// leaves the selection alone.
func (f *FacetState) SetDuration(bucket string) (domain.FacetSelection, error) {
	d, err := domain.ParseDuration(bucket)
	if err != nil {
		return f.Snapshot(), err
	}
	return f.mutate(func(s domain.FacetSelection) (domain.FacetSelection, bool) {
		return s.WithDuration(d), true
	}), nil
}

func (f *FacetState) mutate(fn func(domain.FacetSelection) (domain.FacetSelection, bool)) domain.FacetSelection {
	f.mu.Lock()
	next, changed := fn(f.sel)
	if changed {
		f.sel = next
	}
	f.mu.Unlock()

	if changed {
		f.bus.Publish(events.Event{Type: events.FiltersChanged})
	}
	return next
}
