package scan

import (
	"sync"
	"time"
)

const (
	// FactDelisting flags a market with a pending delisting.
	FactDelisting = "DELISTING"
	// FactTickBurst flags a market with a recent tick burst.
	FactTickBurst = "TICK_BURST"
)

// fact is a time limited flag value.
type fact struct {
	value    any
	expireAt time.Time
}

// FactStore tracks time limited per-market flags used to gate rule evaluation.
type FactStore struct {
	factsMtx sync.RWMutex
	facts    map[string]map[string]fact
	now      func() time.Time
}

// NewFactStore initializes a new fact store.
func NewFactStore() *FactStore {
	return &FactStore{
		facts: make(map[string]map[string]fact),
		now:   time.Now,
	}
}

// SetFact stores the provided flag for a market with an expiry, overwriting any
// existing entry.
func (s *FactStore) SetFact(market string, name string, value any, ttl time.Duration) {
	s.factsMtx.Lock()
	defer s.factsMtx.Unlock()

	set, ok := s.facts[market]
	if !ok {
		set = make(map[string]fact)
		s.facts[market] = set
	}

	set[name] = fact{
		value:    value,
		expireAt: s.now().Add(ttl),
	}
}

// FetchFact returns the stored flag for a market, or the provided default if the flag
// is absent or expired. Expired entries are left for the next sweep, reads stay
// side effect free.
func (s *FactStore) FetchFact(market string, name string, defaultValue any) any {
	s.factsMtx.RLock()
	defer s.factsMtx.RUnlock()

	set, ok := s.facts[market]
	if !ok {
		return defaultValue
	}

	rec, ok := set[name]
	if !ok {
		return defaultValue
	}

	if !rec.expireAt.After(s.now()) {
		return defaultValue
	}

	return rec.value
}

// SweepExpired removes all expired facts from the store.
func (s *FactStore) SweepExpired() {
	s.factsMtx.Lock()
	defer s.factsMtx.Unlock()

	now := s.now()
	for market, set := range s.facts {
		for name, rec := range set {
			if !rec.expireAt.After(now) {
				delete(set, name)
			}
		}
		if len(set) == 0 {
			delete(s.facts, market)
		}
	}
}
