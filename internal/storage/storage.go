package storage

import (
	"context"

	"burnwatch/internal/model"
)

// HistoryStore is the idempotent record store shared by the poller (writes)
// and the broadcast hub (replay reads). Implementations must serialize
// InsertIfAbsent against concurrent RecentN calls.
type HistoryStore interface {
	// InsertIfAbsent stores the record unless its TxHash is already present.
	// It reports whether the record was newly inserted.
	InsertIfAbsent(ctx context.Context, rec model.EnrichedBurnRecord) (bool, error)

	// RecentN returns up to n records, newest-first by capture time.
	RecentN(ctx context.Context, n int) ([]model.EnrichedBurnRecord, error)
}
