package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"impacttrip/internal/adapters/observability"
	"impacttrip/internal/domain"
)

// CriteriaNamespace prefixes every persisted criteria blob.
const CriteriaNamespace = "impacttrip.search"

func CriteriaKey(session string) string {
	if session == "" {
		return CriteriaNamespace
	}
	return CriteriaNamespace + ":" + session
}

// CriteriaStore owns one persisted SearchCriteria blob. Nothing else reads
// or writes its key.
type CriteriaStore struct {
	kv  domain.KV
	key string

	mu    sync.Mutex
	state domain.SearchCriteria
}

// NewCriteriaStore loads the persisted criteria, falling back to defaults.
func NewCriteriaStore(ctx context.Context, kv domain.KV, key string) *CriteriaStore {
	s := &CriteriaStore{kv: kv, key: key, state: domain.DefaultCriteria()}
	if c, ok := s.Load(ctx); ok {
		s.state = c
	}
	return s
}

// Load reads and validates the persisted blob. It reports false when the
// blob is absent or unreadable; it never fails harder than that.
func (s *CriteriaStore) Load(ctx context.Context) (domain.SearchCriteria, bool) {
	raw, ok, err := s.kv.GetRaw(ctx, s.key)
	if err != nil {
		observability.ObserveStoreError("load")
		log.Warn().Err(err).Str("key", s.key).Msg("criteria load failed")
		return domain.SearchCriteria{}, false
	}
	if !ok || len(raw) == 0 {
		log.Debug().Str("key", s.key).Msg("no persisted criteria")
		return domain.SearchCriteria{}, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		observability.ObserveStoreError("load")
		log.Warn().Err(err).Str("key", s.key).Msg("criteria blob is not valid JSON")
		return domain.SearchCriteria{}, false
	}
	c, ok := ValidateCriteria(v)
	if !ok {
		observability.ObserveStoreError("load")
		log.Warn().Str("key", s.key).Msg("criteria blob is not an object")
	}
	return c, ok
}

// Save merges patch into the current state, persists it and returns the
// result. A failed write is logged; the in-memory state is updated anyway.
func (s *CriteriaStore) Save(ctx context.Context, patch domain.CriteriaPatch) domain.SearchCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.state.Apply(patch)
	b, err := json.Marshal(s.state)
	if err == nil {
		err = s.kv.PutRaw(ctx, s.key, b)
	}
	if err != nil {
		observability.ObserveStoreError("save")
		log.Error().Err(err).Str("key", s.key).Msg("criteria save failed")
	}
	return s.state.Clone()
}

func (s *CriteriaStore) Get() domain.SearchCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ValidateCriteria turns a decoded blob into criteria, substituting defaults
// for anything missing or malformed. Unknown fields are ignored. It reports
// false when raw is not a JSON object.
func ValidateCriteria(raw any) (domain.SearchCriteria, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.SearchCriteria{}, false
	}
	c := domain.DefaultCriteria()
	if loc := lookupStr(m, "location"); loc != "" {
		c.Location = loc
	}
	if d := lookupStr(m, "dateStart"); domain.IsISODate(d) {
		c.DateStart = d
	}
	if d := lookupStr(m, "dateEnd"); domain.IsISODate(d) {
		c.DateEnd = d
	}
	c.Adults = domain.ClampAdults(m["adults"])
	c.Children = domain.ClampChildren(m["children"])
	if ages, ok := m["childAges"].([]any); ok {
		c.ChildAges = make([]*int, len(ages))
		for i, a := range ages {
			c.ChildAges[i] = ageSlot(a)
		}
	}
	return c, true
}

// ageSlot clamps a numeric slot; blanks and garbage become an empty slot.
func ageSlot(v any) *int {
	n, ok := domain.ParseInt(v)
	if !ok {
		return nil
	}
	a := domain.Clamp(n, domain.MinChildAge, domain.MaxChildAge)
	return &a
}
