package service

import "sync"

// Sequencer serializes mutating ledger operations. The store is a
// single-writer state machine: one operation runs to completion, fully
// applied or fully rejected, before the next begins. Read-only queries
// do not pass through here; they observe committed transaction
// boundaries only.
type Sequencer struct {
	mu sync.Mutex
}

// NewSequencer constructs a Sequencer shared by every mutating service.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Do runs fn as the sole in-flight mutating operation.
func (s *Sequencer) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
