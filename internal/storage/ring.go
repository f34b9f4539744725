package storage

import (
	"context"
	"sync"

	"burnwatch/internal/model"
)

// Ring is a bounded in-memory HistoryStore. Once capacity is exceeded the
// oldest record is silently evicted. Nothing survives a restart.
type Ring struct {
	mu       sync.RWMutex
	capacity int
	records  []model.EnrichedBurnRecord // oldest first
	keys     map[string]bool
}

// NewRing creates a ring holding at most capacity records.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		capacity: capacity,
		records:  make([]model.EnrichedBurnRecord, 0, capacity),
		keys:     make(map[string]bool),
	}
}

// InsertIfAbsent stores rec unless its TxHash was already seen.
func (r *Ring) InsertIfAbsent(_ context.Context, rec model.EnrichedBurnRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.keys[rec.TxHash] {
		return false, nil
	}

	if len(r.records) == r.capacity {
		evicted := r.records[0]
		delete(r.keys, evicted.TxHash)
		r.records = append(r.records[:0], r.records[1:]...)
	}

	r.records = append(r.records, rec)
	r.keys[rec.TxHash] = true
	return true, nil
}

// RecentN returns up to n records, newest-first.
func (r *Ring) RecentN(_ context.Context, n int) ([]model.EnrichedBurnRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 {
		return nil, nil
	}
	if n > len(r.records) {
		n = len(r.records)
	}

	out := make([]model.EnrichedBurnRecord, 0, n)
	for i := len(r.records) - 1; i >= len(r.records)-n; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}
