package state

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

type Firing struct {
	TriggerAt time.Time
	FiredAt   time.Time
	Signals   int
	Orders    int
}

type Snapshot struct {
	NextTrigger time.Time
	LastFiring  Firing
}

// Store holds the scheduled trigger. The engine is the only writer; the
// health endpoint reads it concurrently.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Store) NextTrigger() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.NextTrigger
}

// SetNextTrigger ignores a value earlier than the current trigger.
func (s *Store) SetNextTrigger(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Before(s.snapshot.NextTrigger) {
		return false
	}
	s.snapshot.NextTrigger = t
	return true
}

func (s *Store) RecordFiring(f Firing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastFiring = f
}

func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.MarshalIndent(s.snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	return nil
}
