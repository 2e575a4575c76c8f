// Package state holds the in-memory bonding-curve state of every tracked asset.
package state

import (
	"sort"
	"sync"

	"solana-curve-indexer/internal/domain"
)

// Entry is one keyed element of a snapshot.
type Entry struct {
	Key   string
	State domain.CurveState
}

type slot struct {
	mu    sync.Mutex
	state domain.CurveState
}

// Store maps contract address to CurveState.
//
// Writers of existing keys hold the store lock shared plus the key's own mutex, so
// upserts on distinct keys run in parallel while upserts on one key serialize.
// Inserting a new key and SnapshotAll take the store lock exclusively, which makes a
// snapshot a point-in-time copy with no entry half written.
type Store struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// New returns an empty store.
func New() *Store {
	return &Store{slots: make(map[string]*slot)}
}

// Get returns a copy of the entry for key.
func (s *Store) Get(key string) (domain.CurveState, bool) {
	s.mu.RLock()
	sl, ok := s.slots[key]
	if !ok {
		s.mu.RUnlock()
		return domain.CurveState{}, false
	}
	sl.mu.Lock()
	st := sl.state.Clone()
	sl.mu.Unlock()
	s.mu.RUnlock()
	return st, true
}

// Upsert applies fn to the entry for key, creating a zero entry for a new key.
// fn runs under the key's lock and must not block.
func (s *Store) Upsert(key string, fn func(*domain.CurveState)) {
	s.mu.RLock()
	if sl, ok := s.slots[key]; ok {
		sl.mu.Lock()
		fn(&sl.state)
		sl.state.ContractAddress = key
		sl.mu.Unlock()
		s.mu.RUnlock()
		return
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{}
		s.slots[key] = sl
	}
	fn(&sl.state)
	sl.state.ContractAddress = key
}

// Update applies fn to an existing entry only. It reports whether key was present.
func (s *Store) Update(key string, fn func(*domain.CurveState)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[key]
	if !ok {
		return false
	}
	sl.mu.Lock()
	fn(&sl.state)
	sl.state.ContractAddress = key
	sl.mu.Unlock()
	return true
}

// Insert adds st when its key is absent. It reports whether the entry was added.
func (s *Store) Insert(st domain.CurveState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[st.ContractAddress]; ok {
		return false
	}
	s.slots[st.ContractAddress] = &slot{state: st.Clone()}
	return true
}

// Load inserts every state whose key is not yet present and returns how many were added.
// Used once at startup to rebuild from durable storage.
func (s *Store) Load(states []domain.CurveState) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range states {
		if st.ContractAddress == "" {
			continue
		}
		if _, ok := s.slots[st.ContractAddress]; ok {
			continue
		}
		s.slots[st.ContractAddress] = &slot{state: st.Clone()}
		n++
	}
	return n
}

// SnapshotAll returns a consistent copy of every entry ordered by key.
func (s *Store) SnapshotAll() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.slots))
	for k, sl := range s.slots {
		out = append(out, Entry{Key: k, State: sl.state.Clone()})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of tracked assets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
