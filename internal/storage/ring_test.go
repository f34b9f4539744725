package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"burnwatch/internal/model"
)

func record(tx string, capturedAt time.Time) model.EnrichedBurnRecord {
	return model.EnrichedBurnRecord{
		TxHash:        tx,
		Token:         "0x1111111111111111111111111111111111111111",
		AmountDisplay: "1.00",
		CapturedAt:    capturedAt,
	}
}

func TestRingInsertIsIdempotent(t *testing.T) {
	ring := NewRing(10)
	ctx := context.Background()
	rec := record("0xabc", time.Now())

	inserted, err := ring.InsertIfAbsent(ctx, rec)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	inserted, err = ring.InsertIfAbsent(ctx, rec)
	if err != nil || inserted {
		t.Fatalf("second insert must be a no-op: inserted=%v err=%v", inserted, err)
	}

	recent, err := ring.RecentN(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("stored %d records, want 1", len(recent))
	}
}

func TestRingEvictsOldest(t *testing.T) {
	ring := NewRing(3)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		rec := record(fmt.Sprintf("0x%d", i), base.Add(time.Duration(i)*time.Second))
		if inserted, err := ring.InsertIfAbsent(ctx, rec); err != nil || !inserted {
			t.Fatalf("insert %d: inserted=%v err=%v", i, inserted, err)
		}
	}

	recent, err := ring.RecentN(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}

	want := []string{"0x4", "0x3", "0x2"}
	if len(recent) != len(want) {
		t.Fatalf("got %d records, want %d", len(recent), len(want))
	}
	for i, tx := range want {
		if recent[i].TxHash != tx {
			t.Fatalf("recent[%d] = %s, want %s", i, recent[i].TxHash, tx)
		}
	}

	// Evicted keys are reinsertable.
	if inserted, err := ring.InsertIfAbsent(ctx, record("0x0", base.Add(10*time.Second))); err != nil || !inserted {
		t.Fatalf("reinsert evicted: inserted=%v err=%v", inserted, err)
	}
}

func TestRingRecentNBounds(t *testing.T) {
	ring := NewRing(10)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		ring.InsertIfAbsent(ctx, record(fmt.Sprintf("0x%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	recent, err := ring.RecentN(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].TxHash != "0x2" || recent[1].TxHash != "0x1" {
		t.Fatalf("recent = %+v, want newest-first [0x2 0x1]", recent)
	}

	if recent, _ := ring.RecentN(ctx, 0); recent != nil {
		t.Fatalf("RecentN(0) = %+v, want nil", recent)
	}
}
