package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"impacttrip/internal/domain"
	"impacttrip/internal/events"
)

const noDatesLabel = "Select dates"

type HotelRenderer interface {
	RenderHotels(panel domain.HotelPanel)
}

// CriteriaReader yields the criteria the hotel links are bound to.
type CriteriaReader interface {
	Get() domain.SearchCriteria
}

// HotelPanel binds the hotel list to the current criteria and re-renders on
// FiltersChanged.
type HotelPanel struct {
	source   domain.CatalogSource
	criteria CriteriaReader
	bus      *events.Bus
	renderer HotelRenderer

	mu     sync.RWMutex
	hotels []domain.Hotel
	panel  domain.HotelPanel
}

func NewHotelPanel(src domain.CatalogSource, criteria CriteriaReader, bus *events.Bus, r HotelRenderer) *HotelPanel {
	return &HotelPanel{source: src, criteria: criteria, bus: bus, renderer: r}
}

func (h *HotelPanel) Load(ctx context.Context) error {
	hs, err := h.source.Hotels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("hotel load failed")
		hs = nil
	}
	h.mu.Lock()
	h.hotels = hs
	h.mu.Unlock()

	h.Render()
	if err != nil {
		return fmt.Errorf("load hotels: %w", err)
	}
	return nil
}

// Start re-renders on FiltersChanged and on CriteriaEdited, so booking links
// follow date and adult edits before submit.
func (h *HotelPanel) Start() func() {
	render := func(events.Event) { h.Render() }
	stopFilters := h.bus.Subscribe(events.FiltersChanged, render)
	stopEdits := h.bus.Subscribe(events.CriteriaEdited, render)
	return func() {
		stopEdits()
		stopFilters()
	}
}

// Render rebuilds the cards from the current criteria.
func (h *HotelPanel) Render() domain.HotelPanel {
	c := h.criteria.Get()

	h.mu.RLock()
	cards := make([]domain.HotelCard, 0, len(h.hotels))
	for _, ht := range h.hotels {
		cards = append(cards, domain.HotelCard{Hotel: ht, BookURL: BookingURL(ht.AffiliateURL, c)})
	}
	h.mu.RUnlock()

	p := domain.HotelPanel{DatesLabel: DatesLabel(c), Cards: cards}
	h.mu.Lock()
	h.panel = p
	h.mu.Unlock()

	if h.renderer != nil {
		h.renderer.RenderHotels(p)
	}
	return p
}

func (h *HotelPanel) Panel() domain.HotelPanel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.panel
}

// BookingURL fills the {CHECKIN}, {CHECKOUT} and {ADULTS} placeholders. An
// empty template yields "#".
func BookingURL(tmpl string, c domain.SearchCriteria) string {
	if strings.TrimSpace(tmpl) == "" {
		return "#"
	}
	return strings.NewReplacer(
		"{CHECKIN}", c.DateStart,
		"{CHECKOUT}", c.DateEnd,
		"{ADULTS}", strconv.Itoa(c.Adults),
	).Replace(tmpl)
}

func DatesLabel(c domain.SearchCriteria) string {
	if c.DateStart == "" || c.DateEnd == "" {
		return noDatesLabel
	}
	return c.DateStart + " → " + c.DateEnd
}
