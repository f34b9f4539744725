package monitor

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"burnwatch/internal/model"
	"burnwatch/internal/storage"
)

type fakeSource struct {
	head     uint64
	headErr  error
	events   []model.RawBurnEvent
	fetchErr error
	fetches  []BlockRange
}

func (f *fakeSource) Head(context.Context) (uint64, error) {
	return f.head, f.headErr
}

func (f *fakeSource) BurnsInRange(_ context.Context, fromBlock, toBlock uint64) ([]model.RawBurnEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.fetches = append(f.fetches, BlockRange{From: fromBlock, To: toBlock})
	var out []model.RawBurnEvent
	for _, event := range f.events {
		if event.BlockNumber >= fromBlock && event.BlockNumber <= toBlock {
			out = append(out, event)
		}
	}
	return out, nil
}

type captureSink struct {
	recs []model.EnrichedBurnRecord
}

func (c *captureSink) Publish(rec model.EnrichedBurnRecord) {
	c.recs = append(c.recs, rec)
}

func burnAt(block uint64, tx string) model.RawBurnEvent {
	return model.RawBurnEvent{
		Token:       "0x1111111111111111111111111111111111111111",
		Amount:      big.NewInt(1e18),
		TxHash:      tx,
		BlockNumber: block,
	}
}

func newTestPoller(source *fakeSource, sink *captureSink, lookBack uint64) *Poller {
	return NewPoller(
		PollerConfig{LookBack: lookBack, BatchSize: 100},
		source,
		NewEnricher(staticReserves{reserves: model.PoolReserves{Token: 1000, Paired: 1}}),
		storage.NewRing(100),
		sink,
		nil,
		nil,
		nil,
	)
}

func TestPollerEmptyRangeSkipsFetch(t *testing.T) {
	source := &fakeSource{head: 50}
	poller := newTestPoller(source, &captureSink{}, 0)

	if err := poller.step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(source.fetches) != 0 {
		t.Fatalf("expected no log fetch for empty range, got %d", len(source.fetches))
	}
	if poller.Cursor() != 50 {
		t.Fatalf("cursor = %d, want 50", poller.Cursor())
	}
}

func TestPollerDeliversInFetchOrder(t *testing.T) {
	source := &fakeSource{
		head: 12,
		events: []model.RawBurnEvent{
			burnAt(10, "0xaaa"),
			burnAt(10, "0xbbb"),
			burnAt(12, "0xccc"),
		},
	}
	sink := &captureSink{}
	poller := newTestPoller(source, sink, 12)

	if err := poller.step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"0xaaa", "0xbbb", "0xccc"}
	if len(sink.recs) != len(want) {
		t.Fatalf("published %d records, want %d", len(sink.recs), len(want))
	}
	for i, tx := range want {
		if sink.recs[i].TxHash != tx {
			t.Fatalf("record %d = %s, want %s", i, sink.recs[i].TxHash, tx)
		}
	}
	if poller.Cursor() != 12 {
		t.Fatalf("cursor = %d, want 12", poller.Cursor())
	}
}

func TestPollerCursorMonotonicAcrossFailures(t *testing.T) {
	source := &fakeSource{head: 12, events: []model.RawBurnEvent{burnAt(10, "0xaaa")}}
	sink := &captureSink{}
	poller := newTestPoller(source, sink, 12)

	if err := poller.step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poller.Cursor() != 12 {
		t.Fatalf("cursor = %d, want 12", poller.Cursor())
	}

	source.headErr = errors.New("node down")
	if err := poller.step(context.Background()); err == nil {
		t.Fatalf("expected head error to surface")
	}
	if poller.Cursor() != 12 {
		t.Fatalf("cursor moved on failed iteration: %d", poller.Cursor())
	}

	source.headErr = nil
	source.head = 15
	source.fetchErr = errors.New("filter failed")
	if err := poller.step(context.Background()); err == nil {
		t.Fatalf("expected fetch error to surface")
	}
	if poller.Cursor() != 12 {
		t.Fatalf("cursor moved on failed fetch: %d", poller.Cursor())
	}

	source.fetchErr = nil
	source.events = append(source.events, burnAt(14, "0xbbb"))
	if err := poller.step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poller.Cursor() != 15 {
		t.Fatalf("cursor = %d, want 15", poller.Cursor())
	}
	if got := len(sink.recs); got != 2 {
		t.Fatalf("published %d records, want 2", got)
	}
}

func TestPollerSkipsDuplicatePublishes(t *testing.T) {
	source := &fakeSource{head: 10, events: []model.RawBurnEvent{burnAt(9, "0xaaa")}}
	sink := &captureSink{}
	poller := newTestPoller(source, sink, 10)

	if err := poller.step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-deliver the same range, as a restart without checkpoint would.
	poller.cursor = 0
	if err := poller.step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.recs) != 1 {
		t.Fatalf("published %d records, want 1 (duplicate suppressed)", len(sink.recs))
	}
}

func TestPollerBatchesLongCatchUp(t *testing.T) {
	source := &fakeSource{head: 250}
	poller := NewPoller(
		PollerConfig{LookBack: 250, BatchSize: 100},
		source,
		NewEnricher(staticReserves{}),
		storage.NewRing(10),
		&captureSink{},
		nil,
		nil,
		nil,
	)

	if err := poller.step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 1, To: 100},
		{From: 101, To: 200},
		{From: 201, To: 250},
	}
	if len(source.fetches) != len(want) {
		t.Fatalf("fetches = %+v, want %+v", source.fetches, want)
	}
	for i := range want {
		if source.fetches[i] != want[i] {
			t.Fatalf("fetch %d = %+v, want %+v", i, source.fetches[i], want[i])
		}
	}
	if poller.Cursor() != 250 {
		t.Fatalf("cursor = %d, want 250", poller.Cursor())
	}
}
