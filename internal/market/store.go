package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/event"
	"main/internal/schema"
)

// Store keeps per-instrument bar history in memory. It supports concurrent
// reads from stage code; writes happen only on the engine's consumer
// goroutine.
type Store struct {
	mu     sync.RWMutex
	series map[schema.Instrument][]event.Bar
}

// NewStore allocates an empty market store.
func NewStore() *Store {
	return &Store{series: make(map[schema.Instrument][]event.Bar)}
}

// Append records the bars of one market event.
func (s *Store) Append(bars []event.Bar) {
	if len(bars) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bar := range bars {
		s.series[bar.Instrument] = append(s.series[bar.Instrument], bar)
	}
}

// Last returns the most recent bar for the instrument.
func (s *Store) Last(instrument schema.Instrument) (event.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[instrument]
	if len(series) == 0 {
		return event.Bar{}, false
	}
	return series[len(series)-1], true
}

// LastPrice returns the most recent close for the instrument.
func (s *Store) LastPrice(instrument schema.Instrument) (decimal.Decimal, bool) {
	bar, ok := s.Last(instrument)
	if !ok {
		return decimal.Decimal{}, false
	}
	return bar.Close, true
}

// History returns up to n most recent bars for the instrument, oldest
// first. n <= 0 returns the full history. The returned slice is a copy.
func (s *Store) History(instrument schema.Instrument, n int) []event.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[instrument]
	if n <= 0 || n > len(series) {
		n = len(series)
	}
	out := make([]event.Bar, n)
	copy(out, series[len(series)-n:])
	return out
}

// Len returns the number of recorded bars for the instrument.
func (s *Store) Len(instrument schema.Instrument) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[instrument])
}

// LastTime returns the newest bar timestamp across all instruments.
func (s *Store) LastTime() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	found := false
	for _, series := range s.series {
		if len(series) == 0 {
			continue
		}
		if ts := series[len(series)-1].Time; ts.After(last) {
			last = ts
			found = true
		}
	}
	return last, found
}
