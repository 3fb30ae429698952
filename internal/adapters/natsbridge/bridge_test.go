package natsbridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"impacttrip/internal/adapters/natsbridge"
	"impacttrip/internal/app"
	"impacttrip/internal/domain"
	"impacttrip/internal/events"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{subject, data})
	return p.err
}

type memKV struct{ data map[string][]byte }

func (k *memKV) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := k.data[key]
	return b, ok, nil
}
func (k *memKV) PutRaw(ctx context.Context, key string, b []byte) error {
	k.data[key] = b
	return nil
}

type emptySource struct{}

func (emptySource) Opportunities(ctx context.Context) ([]domain.CatalogItem, error) {
	return []domain.CatalogItem{{ID: "o1", Title: "Tide pools", Section: "nature"}}, nil
}
func (emptySource) Hotels(ctx context.Context) ([]domain.Hotel, error) { return nil, nil }

func TestBridge_RelaysSessionEvents(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	br := natsbridge.New(pub, "trips")
	m := app.NewSessionManager(&memKV{data: map[string][]byte{}}, emptySource{}, app.EngineConfig{}, nil, br.Attach)

	s, err := m.Open(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Do(func(s *app.Session) error {
		s.Form.ChangeChildren(ctx, "1")
		s.Form.ChangeAge(ctx, 0, "9")
		if _, err := s.Form.Submit(ctx); err != nil {
			return err
		}
		s.Facets.ToggleLanguage("English")
		_, err := s.Engine.Select("o1")
		return err
	})

	want := []string{
		"trips." + s.ID + ".criteria_applied",
		"trips." + s.ID + ".filters_changed",
		"trips." + s.ID + ".filters_changed",
		"trips." + s.ID + ".item_selected",
	}
	if len(pub.msgs) != len(want) {
		t.Fatalf("got %d messages", len(pub.msgs))
	}
	for i, w := range want {
		if pub.msgs[i].subject != w {
			t.Fatalf("msg %d subject = %s, want %s", i, pub.msgs[i].subject, w)
		}
	}

	var applied natsbridge.Message
	if err := json.Unmarshal(pub.msgs[0].data, &applied); err != nil {
		t.Fatal(err)
	}
	if applied.Session != s.ID || applied.Criteria == nil || applied.Criteria.Children != 1 {
		t.Fatalf("applied = %+v", applied)
	}
	var facets natsbridge.Message
	_ = json.Unmarshal(pub.msgs[2].data, &facets)
	if !facets.Facets.HasLanguage("English") {
		t.Fatalf("facets not carried: %v", facets.Facets.Languages())
	}
	var sel natsbridge.Message
	_ = json.Unmarshal(pub.msgs[3].data, &sel)
	if sel.Item == nil || sel.Item.ID != "o1" {
		t.Fatalf("item = %+v", sel.Item)
	}

	if err := m.Close(s.ID); err != nil {
		t.Fatal(err)
	}
	s.Bus.Publish(events.Event{Type: events.FiltersChanged})
	if len(pub.msgs) != len(want) {
		t.Fatalf("relay still attached after close")
	}
}

func TestBridge_PublishErrorIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	br := natsbridge.New(pub, "")
	m := app.NewSessionManager(&memKV{data: map[string][]byte{}}, emptySource{}, app.EngineConfig{}, nil, br.Attach)
	s, _ := m.Open(context.Background(), "")

	fs := s.Facets.ToggleLanguage("French")
	if !fs.HasLanguage("French") || len(pub.msgs) != 1 {
		t.Fatalf("toggle should succeed and still try to publish")
	}
	if br.Subject(s.ID, events.FiltersChanged) != "impacttrip."+s.ID+".filters_changed" {
		t.Fatalf("default prefix not applied")
	}
}
