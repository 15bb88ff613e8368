package ledger

import (
	"sync"
)

// Memory is a concurrency-safe in-memory access ledger.
// Counts only grow and entries are never removed; all state is lost on exit.
type Memory struct {
	mu sync.RWMutex

	// key: client identifier, value: number of recorded accesses
	counts map[string]int64
}

// NewMemory creates an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		counts: make(map[string]int64),
	}
}

// Record increments the access count for id, starting from zero if unseen.
func (m *Memory) Record(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[id]++
}

// Count returns the number of accesses recorded for id.
func (m *Memory) Count(id string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.counts[id]
}

// Total returns the sum of all counts across all identifiers.
func (m *Memory) Total() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, n := range m.counts {
		total += n
	}
	return total
}

// Clients returns the number of distinct identifiers seen so far.
func (m *Memory) Clients() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.counts)
}
