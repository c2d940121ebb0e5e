// Package history keeps the durable conversation record: an append-only,
// offset-addressable message log and per-conversation transcript
// reconstruction from response items.
package history

import (
	"sync"

	"github.com/SawyerHood/codex/protocol"
)

// Store is the append-only message history log. Entries are addressed by
// (log id, offset); offsets are stable once assigned. The store is
// process-wide and outlives any single turn.
type Store struct {
	mu      sync.RWMutex
	logID   uint64
	entries []protocol.HistoryEntry
}

// NewStore creates a store identified by logID.
func NewStore(logID uint64) *Store {
	return &Store{logID: logID}
}

// LogID returns the store's log identifier.
func (s *Store) LogID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logID
}

// SetLogID rebinds the store to a new log identifier. Used when
// session_configured reports the backend's history log id after the store
// was created.
func (s *Store) SetLogID(logID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logID = logID
}

// Append adds an entry and returns its offset.
func (s *Store) Append(entry protocol.HistoryEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return len(s.entries) - 1
}

// Get returns the entry at offset within logID. A mismatched log id or an
// out-of-range offset is not-found, never an error.
func (s *Store) Get(logID uint64, offset int) (protocol.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if logID != s.logID || offset < 0 || offset >= len(s.entries) {
		return protocol.HistoryEntry{}, false
	}
	return s.entries[offset], true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy of all entries in append order.
func (s *Store) Entries() []protocol.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
