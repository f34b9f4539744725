package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"burnwatch/internal/model"
	"burnwatch/internal/storage"
)

type recordingSub struct {
	mu   sync.Mutex
	recs []model.EnrichedBurnRecord
	fail bool
}

func (s *recordingSub) Send(rec model.EnrichedBurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("subscriber gone")
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *recordingSub) txHashes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec.TxHash)
	}
	return out
}

func seededStore(t *testing.T, hashes ...string) storage.HistoryStore {
	t.Helper()
	ring := storage.NewRing(50)
	base := time.Now()
	for i, tx := range hashes {
		rec := model.EnrichedBurnRecord{TxHash: tx, CapturedAt: base.Add(time.Duration(i) * time.Second)}
		if inserted, err := ring.InsertIfAbsent(context.Background(), rec); err != nil || !inserted {
			t.Fatalf("seed %s: inserted=%v err=%v", tx, inserted, err)
		}
	}
	return ring
}

func TestAttachReplaysHistoryOldestFirst(t *testing.T) {
	store := seededStore(t, "0xa", "0xb", "0xc")
	h := New(store, 2, nil)

	sub := &recordingSub{}
	h.Attach(context.Background(), sub)

	want := []string{"0xb", "0xc"}
	got := sub.txHashes()
	if len(got) != len(want) {
		t.Fatalf("replayed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("replayed %v, want %v", got, want)
		}
	}
}

func TestPublishAfterReplayKeepsOrder(t *testing.T) {
	store := seededStore(t, "0xa", "0xb")
	h := New(store, 10, nil)

	sub := &recordingSub{}
	h.Attach(context.Background(), sub)

	h.Publish(model.EnrichedBurnRecord{TxHash: "0xc"})
	h.Publish(model.EnrichedBurnRecord{TxHash: "0xd"})

	want := []string{"0xa", "0xb", "0xc", "0xd"}
	got := sub.txHashes()
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivered %v, want %v", got, want)
		}
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := New(storage.NewRing(10), 10, nil)

	subs := make([]*recordingSub, 3)
	for i := range subs {
		subs[i] = &recordingSub{}
		h.Attach(context.Background(), subs[i])
	}

	h.Publish(model.EnrichedBurnRecord{TxHash: "0xa"})

	for i, sub := range subs {
		if got := sub.txHashes(); len(got) != 1 || got[0] != "0xa" {
			t.Fatalf("subscriber %d got %v", i, got)
		}
	}
}

func TestPublishDetachesDeadSubscriber(t *testing.T) {
	h := New(storage.NewRing(10), 10, nil)

	dead := &recordingSub{fail: true}
	alive := &recordingSub{}
	h.Attach(context.Background(), dead)
	h.Attach(context.Background(), alive)

	h.Publish(model.EnrichedBurnRecord{TxHash: "0xa"})
	h.Publish(model.EnrichedBurnRecord{TxHash: "0xb"})

	if got := alive.txHashes(); len(got) != 2 {
		t.Fatalf("alive subscriber got %v, want 2 records", got)
	}

	h.mu.RLock()
	_, stillThere := h.subs[dead]
	h.mu.RUnlock()
	if stillThere {
		t.Fatalf("dead subscriber was not detached")
	}
}

func TestPollerStartsExactlyOnce(t *testing.T) {
	h := New(storage.NewRing(10), 10, nil)

	var mu sync.Mutex
	starts := 0
	h.SetPollerStart(func() {
		mu.Lock()
		starts++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Attach(context.Background(), &recordingSub{})
			h.Publish(model.EnrichedBurnRecord{TxHash: fmt.Sprintf("0x%d", i)})
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if starts != 1 {
		t.Fatalf("poller started %d times, want 1", starts)
	}
}
