// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/blackbox/internal/triage"
)

// Store holds analysis reports in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	reports map[string]*triage.Report // analysis ID -> report
	seen    map[string]string         // input fingerprint -> analysis ID (dedup)
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		reports: make(map[string]*triage.Report),
		seen:    make(map[string]string),
	}
}

// Get retrieves a report by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetByFingerprint retrieves a report by input fingerprint, for
// deduplication. Returns a copy.
func (s *Store) GetByFingerprint(_ context.Context, fp string) (*triage.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[fp]
	if !ok {
		return nil, false, nil
	}
	r := s.reports[id]
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the report.
func (s *Store) Put(_ context.Context, r *triage.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reports[r.ID] = &cp
	s.seen[r.Fingerprint] = r.ID
	return nil
}
