// Package store implements the two-slot coalescing price cache. A
// single process watches exactly one pair on exactly two venues, so
// the store holds two cells, one per Source, each retaining only the
// most recent observation.
package store

import (
	"sync"
	"time"

	"arbwatch/internal/models"
)

// PriceStore holds the latest observation per source. Invariant:
// only the latest update per source is retained; older observations
// are silently overwritten.
type PriceStore struct {
	pair models.TradingPair

	cexMu  sync.RWMutex
	cex    *models.SourcePrice
	dexMu  sync.RWMutex
	dex    *models.SourcePrice
}

// New constructs an empty store for the given pair.
func New(pair models.TradingPair) *PriceStore {
	return &PriceStore{pair: pair}
}

// Pair returns the trading pair this store was built for.
func (s *PriceStore) Pair() models.TradingPair { return s.pair }

// Update replaces the matching slot atomically with a new
// SourcePrice. The lock scope is exactly the pointer swap; no I/O or
// computation happens while held.
func (s *PriceStore) Update(u models.PriceUpdate) {
	sp := models.FromUpdate(u)
	switch u.Source {
	case models.SourceCex:
		s.cexMu.Lock()
		s.cex = &sp
		s.cexMu.Unlock()
	case models.SourceDex:
		s.dexMu.Lock()
		s.dex = &sp
		s.dexMu.Unlock()
	}
}

// Snapshot returns clones of both slots, or ok=false if either is
// empty.
func (s *PriceStore) Snapshot() (cex, dex models.SourcePrice, ok bool) {
	s.cexMu.RLock()
	c := s.cex
	s.cexMu.RUnlock()

	s.dexMu.RLock()
	d := s.dex
	s.dexMu.RUnlock()

	if c == nil || d == nil {
		return models.SourcePrice{}, models.SourcePrice{}, false
	}
	return *c, *d, true
}

// HasFresh reports whether both slots are present and each is within
// maxAge of now.
func (s *PriceStore) HasFresh(maxAge time.Duration) bool {
	cex, dex, ok := s.Snapshot()
	if !ok {
		return false
	}
	return !cex.IsStale(maxAge) && !dex.IsStale(maxAge)
}

// PurgeStale empties any slot whose age exceeds maxAge.
func (s *PriceStore) PurgeStale(maxAge time.Duration) {
	s.cexMu.Lock()
	if s.cex != nil && s.cex.IsStale(maxAge) {
		s.cex = nil
	}
	s.cexMu.Unlock()

	s.dexMu.Lock()
	if s.dex != nil && s.dex.IsStale(maxAge) {
		s.dex = nil
	}
	s.dexMu.Unlock()
}
