package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"burnwatch/internal/model"
	"burnwatch/internal/storage"
)

// Subscriber receives enriched records. Send must not block: a slow reader
// drops records rather than stalling the hub. A non-nil error means the
// subscriber is gone and will be detached.
type Subscriber interface {
	Send(rec model.EnrichedBurnRecord) error
}

// Hub fans newly enriched records out to every connected subscriber and
// replays recent history to late joiners. It also supervises the single
// process-wide poller task, started once on the first connection.
type Hub struct {
	store       storage.HistoryStore
	historySize int
	logger      *zap.Logger

	mu   sync.RWMutex
	subs map[Subscriber]struct{}

	startOnce sync.Once
	start     func()
}

// New builds a hub replaying up to historySize records per connection.
func New(store storage.HistoryStore, historySize int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		store:       store,
		historySize: historySize,
		logger:      logger,
		subs:        make(map[Subscriber]struct{}),
	}
}

// SetPollerStart registers the function that launches the background poller.
// It runs at most once, on the first Attach.
func (h *Hub) SetPollerStart(start func()) {
	h.start = start
}

// Publish delivers rec to every connected subscriber. Delivery is
// fire-and-forget; a dead subscriber is detached, never retried.
func (h *Hub) Publish(rec model.EnrichedBurnRecord) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(rec); err != nil {
			h.logger.Debug("subscriber send failed, detaching", zap.Error(err))
			h.Detach(sub)
		}
	}
}

// Attach replays recent history to sub oldest-first, then registers it for
// live records. A record enriched during the replay window arrives once via
// the next Publish instead of the replay; records are keyed by tx hash, so
// viewers can collapse the rare duplicate.
func (h *Hub) Attach(ctx context.Context, sub Subscriber) {
	recent, err := h.store.RecentN(ctx, h.historySize)
	if err != nil {
		h.logger.Warn("history replay read failed", zap.Error(err))
	}
	for i := len(recent) - 1; i >= 0; i-- {
		if err := sub.Send(recent[i]); err != nil {
			h.logger.Debug("replay send failed", zap.Error(err))
			return
		}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()

	h.logger.Info("subscriber connected", zap.Int("subscribers", count))

	if h.start != nil {
		h.startOnce.Do(h.start)
	}
}

// Detach removes sub from the live set.
func (h *Hub) Detach(sub Subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	count := len(h.subs)
	h.mu.Unlock()

	h.logger.Info("subscriber disconnected", zap.Int("subscribers", count))
}
