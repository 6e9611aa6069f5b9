package seed

import (
	"errors"
	"sync"
)

// ErrNotInitialized is returned by Current before Init has run.
var ErrNotInitialized = errors.New("seed: store not initialized")

// Store holds the seed the running views were built from. Init replaces the
// active seed and remembers it as the baseline Reset returns to.
type Store struct {
	mu       sync.RWMutex
	baseline Seed
	current  Seed
	ready    bool
	version  uint64
}

// NewStore returns a store initialized with s.
func NewStore(s Seed) (*Store, error) {
	st := &Store{}
	if err := st.Init(s); err != nil {
		return nil, err
	}
	return st, nil
}

// Init validates s and makes it both the active seed and the reset baseline.
func (st *Store) Init(s Seed) error {
	s = s.Clone()
	if err := s.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.baseline = s
	st.current = s.Clone()
	st.ready = true
	st.version++
	return nil
}

// Replace swaps the active seed without moving the baseline, e.g. on hot
// reload of an override file.
func (st *Store) Replace(s Seed) error {
	s = s.Clone()
	if err := s.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.ready {
		st.baseline = s.Clone()
		st.ready = true
	}
	st.current = s
	st.version++
	return nil
}

// Reset restores the baseline given to the last Init.
func (st *Store) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.ready {
		return
	}
	st.current = st.baseline.Clone()
	st.version++
}

// Current returns a copy of the active seed.
func (st *Store) Current() (Seed, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if !st.ready {
		return Seed{}, ErrNotInitialized
	}
	return st.current.Clone(), nil
}

// Version increases on every Init, Replace and Reset.
func (st *Store) Version() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.version
}
