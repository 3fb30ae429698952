// Package natsbridge relays session bus events to NATS subjects
// <prefix>.<session>.<event>.
package natsbridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"impacttrip/internal/app"
	"impacttrip/internal/domain"
	"impacttrip/internal/events"
)

// Publisher is the part of *nats.Conn the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Message struct {
	Session  string                 `json:"session"`
	Event    string                 `json:"event"`
	Criteria *domain.SearchCriteria `json:"criteria,omitempty"`
	Facets   domain.FacetSelection  `json:"facets"`
	Item     *domain.CatalogItem    `json:"item,omitempty"`
	At       time.Time              `json:"at"`
}

type Bridge struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

func New(pub Publisher, prefix string) *Bridge {
	if prefix == "" {
		prefix = "impacttrip"
	}
	return &Bridge{pub: pub, prefix: prefix, now: time.Now}
}

func (b *Bridge) Subject(session string, t events.Type) string {
	return fmt.Sprintf("%s.%s.%s", b.prefix, session, t)
}

// Attach relays every event of s; it is an app.SessionHook.
func (b *Bridge) Attach(s *app.Session) func() {
	var unsubs []func()
	for _, t := range []events.Type{events.FiltersChanged, events.CriteriaApplied, events.ItemSelected} {
		unsubs = append(unsubs, s.Bus.Subscribe(t, func(e events.Event) { b.relay(s, e) }))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (b *Bridge) relay(s *app.Session, e events.Event) {
	msg := Message{
		Session:  s.ID,
		Event:    e.Type.String(),
		Criteria: e.Criteria,
		Facets:   s.Facets.Snapshot(),
		Item:     e.Item,
		At:       b.now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", msg.Event).Msg("nats relay marshal failed")
		return
	}
	subject := b.Subject(s.ID, e.Type)
	if err := b.pub.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("nats publish failed")
	}
}

type ConnConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

func Connect(cfg ConnConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.Name("impacttrip-api"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}
	return nc, nil
}
