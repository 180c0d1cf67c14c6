package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"cvscan/pkg/contracts/domain"
)

// ParseScanRates parses a comma separated list such as "5, 10, 20".
// Blank entries are skipped, duplicates keep their first position, and
// every rate must be a positive finite number.
func ParseScanRates(input string) ([]float64, error) {
	var rates []float64
	seen := make(map[float64]bool)
	for _, field := range strings.Split(input, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		rate, err := strconv.ParseFloat(field, 64)
		if err != nil || rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidScanRate, field)
		}
		if seen[rate] {
			continue
		}
		seen[rate] = true
		rates = append(rates, rate)
	}
	if len(rates) == 0 {
		return nil, ErrNoScanRates
	}
	return rates, nil
}

// Session tracks the declared scan rates and the recording attached to
// each of them. It is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	rates    []float64
	datasets map[float64]domain.Dataset
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{datasets: make(map[float64]domain.Dataset)}
}

// SetScanRates replaces the declared scan rates. Recordings of rates that
// remain declared stay attached; the others are detached and returned.
func (s *Session) SetScanRates(rates []float64) []domain.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[float64]bool, len(rates))
	for _, r := range rates {
		keep[r] = true
	}
	var dropped []domain.Dataset
	for _, r := range s.rates {
		if ds, ok := s.datasets[r]; ok && !keep[r] {
			dropped = append(dropped, ds)
			delete(s.datasets, r)
		}
	}
	s.rates = append([]float64(nil), rates...)
	return dropped
}

// ScanRates returns the declared scan rates in declaration order.
func (s *Session) ScanRates() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.rates...)
}

// Has reports whether rate is declared.
func (s *Session) Has(rate float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.has(rate)
}

func (s *Session) has(rate float64) bool {
	for _, r := range s.rates {
		if r == rate {
			return true
		}
	}
	return false
}

// Attach records ds as the recording of its scan rate.
func (s *Session) Attach(ds domain.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has(ds.ScanRate) {
		return rateError(ErrScanRateNotFound, ds.ScanRate)
	}
	s.datasets[ds.ScanRate] = ds
	return nil
}

// Detach forgets the recording of rate.
func (s *Session) Detach(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, rate)
}

// Dataset returns the recording attached to rate.
func (s *Session) Dataset(rate float64) (domain.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[rate]
	return ds, ok
}

// Missing returns the declared rates without a recording.
func (s *Session) Missing() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.missing()
}

func (s *Session) missing() []float64 {
	out := []float64{}
	for _, r := range s.rates {
		if _, ok := s.datasets[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Complete reports whether at least one rate is declared and every
// declared rate has a recording.
func (s *Session) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rates) > 0 && len(s.missing()) == 0
}

// State returns a consistent snapshot of the session.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := domain.SessionState{
		ScanRates: append([]float64{}, s.rates...),
		Datasets:  []domain.Dataset{},
		Missing:   s.missing(),
	}
	for _, r := range s.rates {
		if ds, ok := s.datasets[r]; ok {
			state.Datasets = append(state.Datasets, ds)
		}
	}
	state.Complete = len(s.rates) > 0 && len(state.Missing) == 0
	return state
}

// Reset clears the scan rates and all attachments.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = nil
	s.datasets = make(map[float64]domain.Dataset)
}
