package app_test

import (
	"context"
	"testing"

	"impacttrip/internal/app"
	"impacttrip/internal/domain"
	"impacttrip/internal/events"
)

type hotelRecorder struct{ panels []domain.HotelPanel }

func (r *hotelRecorder) RenderHotels(p domain.HotelPanel) { r.panels = append(r.panels, p) }

func TestBookingURL(t *testing.T) {
	c := domain.SearchCriteria{DateStart: "2026-11-01", DateEnd: "2026-11-04", Adults: 3}
	got := app.BookingURL("https://book.example/h/9?in={CHECKIN}&out={CHECKOUT}&a={ADULTS}&back={CHECKIN}", c)
	want := "https://book.example/h/9?in=2026-11-01&out=2026-11-04&a=3&back=2026-11-01"
	if got != want {
		t.Fatalf("got %s", got)
	}
	if app.BookingURL("  ", c) != "#" {
		t.Fatalf("empty template should yield #")
	}
}

func TestDatesLabel(t *testing.T) {
	if l := app.DatesLabel(domain.SearchCriteria{DateStart: "2026-11-01"}); l != "Select dates" {
		t.Fatalf("label = %q", l)
	}
	if l := app.DatesLabel(domain.SearchCriteria{DateStart: "2026-11-01", DateEnd: "2026-11-02"}); l != "2026-11-01 → 2026-11-02" {
		t.Fatalf("label = %q", l)
	}
}

func TestHotelPanel_FollowsFieldEditsAndSubmit(t *testing.T) {
	ctx := context.Background()
	bus := events.New()
	store := app.NewCriteriaStore(ctx, newMemKV(), "k")
	form := app.NewFormController(store, bus, nil, fixedNow)
	rec := &hotelRecorder{}
	src := &fakeSource{hotels: []domain.Hotel{
		{ID: "h1", Name: "Casa", AffiliateURL: "https://b.example?a={ADULTS}"},
		{ID: "h2", Name: "No link"},
	}}
	hp := app.NewHotelPanel(src, store, bus, rec)
	defer hp.Start()()

	if err := hp.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := hp.Panel().Cards[0].BookURL; got != "https://b.example?a=1" {
		t.Fatalf("initial url %s", got)
	}

	form.ChangeField(ctx, app.FieldAdults, "4")
	p := hp.Panel()
	if p.Cards[0].BookURL != "https://b.example?a=4" || p.Cards[1].BookURL != "#" {
		t.Fatalf("adults edit not reflected: %+v", p.Cards)
	}
	if len(rec.panels) != 2 {
		t.Fatalf("expected re-render on edit, got %d", len(rec.panels))
	}

	form.ChangeField(ctx, app.FieldLocation, "Lisbon")
	if len(rec.panels) != 2 {
		t.Fatalf("location edit should not re-render hotels")
	}

	if _, err := form.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(rec.panels) != 3 {
		t.Fatalf("expected re-render on submit, got %d", len(rec.panels))
	}
}

func TestHotelPanel_DateEditsUpdateLinksWithoutRecompute(t *testing.T) {
	ctx := context.Background()
	bus := events.New()
	store := app.NewCriteriaStore(ctx, newMemKV(), "k")
	form := app.NewFormController(store, bus, nil, fixedNow)
	src := &fakeSource{hotels: []domain.Hotel{
		{ID: "h1", Name: "Casa", AffiliateURL: "https://b.example?a={ADULTS}&in={CHECKIN}&out={CHECKOUT}"},
	}}
	hp := app.NewHotelPanel(src, store, bus, nil)
	defer hp.Start()()
	if err := hp.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	recomputes := 0
	bus.Subscribe(events.FiltersChanged, func(events.Event) { recomputes++ })

	form.ChangeField(ctx, app.FieldAdults, "4")
	form.ChangeField(ctx, app.FieldDateStart, "2026-11-01")
	form.ChangeField(ctx, app.FieldDateEnd, "2026-11-03")

	p := hp.Panel()
	if got, want := p.Cards[0].BookURL, "https://b.example?a=4&in=2026-11-01&out=2026-11-03"; got != want {
		t.Fatalf("url = %s, want %s", got, want)
	}
	if p.DatesLabel != "2026-11-01 → 2026-11-03" {
		t.Fatalf("label = %q", p.DatesLabel)
	}
	if recomputes != 0 {
		t.Fatalf("field edits published FiltersChanged %d times", recomputes)
	}
}
