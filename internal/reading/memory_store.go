package reading

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and local demos.
type MemoryStore struct {
	mu       sync.RWMutex
	readings []Reading
	reason   Reason
	err      error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add appends a reading.
func (s *MemoryStore) Add(r Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
}

// Fail makes every subsequent call fail with the given reason and error.
// Passing ReasonNone clears the failure.
func (s *MemoryStore) Fail(reason Reason, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reason = reason
	s.err = err
}

// Name returns the backend name.
func (s *MemoryStore) Name() string {
	return "memory"
}

// Latest returns the reading with the greatest timestamp.
func (s *MemoryStore) Latest(_ context.Context) Latest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.reason != ReasonNone {
		return Absent(s.reason, s.err)
	}
	if len(s.readings) == 0 {
		return Absent(ReasonNoRecords, ErrNoRecords)
	}

	newest := s.readings[0]
	for _, r := range s.readings[1:] {
		if r.Timestamp.After(newest.Timestamp) {
			newest = r
		}
	}
	return Found(newest)
}

// Ping fails only when a connection failure is configured.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.reason == ReasonConnectionFailed {
		return Absent(s.reason, s.err).Err()
	}
	return nil
}
