package scan

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestFactStore(t *testing.T) {
	store := NewFactStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	market := "AIAUSDT"

	// Ensure an absent fact falls back to the default.
	assert.Equal(t, store.FetchFact(market, FactDelisting, false), any(false))

	store.SetFact(market, FactDelisting, true, time.Hour*24*60)
	assert.Equal(t, store.FetchFact(market, FactDelisting, false), any(true))

	// Ensure the fact still gates midway through its lifetime.
	now = now.Add(time.Hour * 24 * 30)
	assert.Equal(t, store.FetchFact(market, FactDelisting, false), any(true))

	// Ensure the fact reads as absent once expired, without being removed.
	now = now.Add(time.Hour * 24 * 31)
	assert.Equal(t, store.FetchFact(market, FactDelisting, false), any(false))
	store.factsMtx.RLock()
	_, present := store.facts[market][FactDelisting]
	store.factsMtx.RUnlock()
	assert.True(t, present)

	// Ensure the sweep removes expired entries.
	store.SweepExpired()
	store.factsMtx.RLock()
	_, present = store.facts[market]
	store.factsMtx.RUnlock()
	assert.False(t, present)
}

func TestFactStoreOverwrite(t *testing.T) {
	store := NewFactStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	store.SetFact("BTCUSDT", FactTickBurst, true, time.Second*2)
	assert.Equal(t, store.FetchFact("BTCUSDT", FactTickBurst, false), any(true))

	// Ensure overwriting refreshes the expiry.
	now = now.Add(time.Second)
	store.SetFact("BTCUSDT", FactTickBurst, true, time.Second*2)
	now = now.Add(time.Millisecond * 1500)
	assert.Equal(t, store.FetchFact("BTCUSDT", FactTickBurst, false), any(true))

	now = now.Add(time.Second)
	assert.Equal(t, store.FetchFact("BTCUSDT", FactTickBurst, false), any(false))

	// Ensure the sweep keeps live facts.
	store.SetFact("ETHUSDT", FactTickBurst, true, time.Hour)
	store.SweepExpired()
	assert.Equal(t, store.FetchFact("ETHUSDT", FactTickBurst, false), any(true))
}
