package monitor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"burnwatch/internal/model"
	"burnwatch/internal/storage"
)

// BurnSource supplies the chain head and decoded burn events per range.
type BurnSource interface {
	Head(ctx context.Context) (uint64, error)
	BurnsInRange(ctx context.Context, fromBlock, toBlock uint64) ([]model.RawBurnEvent, error)
}

// Publisher receives every newly persisted record, in persistence order.
type Publisher interface {
	Publish(rec model.EnrichedBurnRecord)
}

// ArchiveSink is an optional append-only audit trail for new records.
type ArchiveSink interface {
	Append(rec model.EnrichedBurnRecord) error
}

// PollerConfig holds the poll loop's immutable settings.
type PollerConfig struct {
	LookBack  uint64
	BatchSize uint64
	Policy    RetryPolicy
}

// Poller owns the block cursor. It advances the cursor only after every
// event in a fetched range has been enriched and handed to the store and
// hub, so a crash mid-range re-delivers the whole range on restart.
type Poller struct {
	cfg        PollerConfig
	source     BurnSource
	enricher   *Enricher
	store      storage.HistoryStore
	publisher  Publisher
	archive    ArchiveSink
	checkpoint *CheckpointStore
	logger     *zap.Logger

	started bool
	cursor  uint64
}

// NewPoller builds a poller. archive and checkpoint may be nil.
func NewPoller(
	cfg PollerConfig,
	source BurnSource,
	enricher *Enricher,
	store storage.HistoryStore,
	publisher Publisher,
	archive ArchiveSink,
	checkpoint *CheckpointStore,
	logger *zap.Logger,
) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cfg:        cfg,
		source:     source,
		enricher:   enricher,
		store:      store,
		publisher:  publisher,
		archive:    archive,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// Cursor returns the highest fully processed block.
func (p *Poller) Cursor() uint64 {
	return p.cursor
}

// Run executes the poll loop until ctx is cancelled. No source error is
// fatal: failed iterations are logged and retried after the policy's
// back-off without advancing the cursor.
func (p *Poller) Run(ctx context.Context) error {
	if p.source == nil {
		return fmt.Errorf("burn source is nil")
	}
	if p.store == nil {
		return fmt.Errorf("history store is nil")
	}
	if p.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	p.logger.Info("monitor start",
		zap.Uint64("look_back", p.cfg.LookBack),
		zap.Uint64("batch_size", p.cfg.BatchSize),
		zap.Duration("poll_interval", p.cfg.Policy.PollInterval),
	)

	for {
		err := p.step(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			p.logger.Warn("poll iteration failed", zap.Error(err))
		}
		if err := sleep(ctx, p.cfg.Policy.Delay(err)); err != nil {
			return err
		}
	}
}

func (p *Poller) step(ctx context.Context) error {
	if !p.started {
		if err := p.initCursor(ctx); err != nil {
			return err
		}
		p.started = true
	}

	head, err := p.source.Head(ctx)
	if err != nil {
		return fmt.Errorf("read head: %w", err)
	}
	if head <= p.cursor {
		// Nothing new; skip the log query entirely.
		return nil
	}

	ranges, err := SplitRange(p.cursor+1, head, p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		events, err := p.source.BurnsInRange(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("fetch burns [%d,%d]: %w", blockRange.From, blockRange.To, err)
		}

		for _, event := range events {
			p.deliver(ctx, p.enricher.Enrich(ctx, event))
		}

		p.cursor = blockRange.To
		if p.checkpoint != nil {
			if err := p.checkpoint.Save(p.cursor); err != nil {
				p.logger.Warn("checkpoint save failed", zap.Uint64("cursor", p.cursor), zap.Error(err))
			}
		}
	}

	return nil
}

// initCursor seeds the cursor from the checkpoint when one exists,
// otherwise from head minus the look-back window.
func (p *Poller) initCursor(ctx context.Context) error {
	if p.checkpoint != nil {
		cursor, ok, err := p.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok {
			p.cursor = cursor
			p.logger.Info("resume from checkpoint", zap.Uint64("cursor", cursor))
			return nil
		}
	}

	head, err := p.source.Head(ctx)
	if err != nil {
		return fmt.Errorf("read head: %w", err)
	}
	if head > p.cfg.LookBack {
		p.cursor = head - p.cfg.LookBack
	} else {
		p.cursor = 0
	}
	p.logger.Info("cursor initialized", zap.Uint64("head", head), zap.Uint64("cursor", p.cursor))
	return nil
}

// deliver persists one record and publishes it when newly inserted. A store
// failure loses the record for persistence but still publishes it live; a
// duplicate is dropped silently.
func (p *Poller) deliver(ctx context.Context, rec model.EnrichedBurnRecord) {
	inserted, err := p.store.InsertIfAbsent(ctx, rec)
	if err != nil {
		p.logger.Warn("history insert failed", zap.String("tx", rec.TxHash), zap.Error(err))
		inserted = true
	}
	if !inserted {
		return
	}

	if p.archive != nil {
		if err := p.archive.Append(rec); err != nil {
			p.logger.Warn("archive append failed", zap.String("tx", rec.TxHash), zap.Error(err))
		}
	}

	if p.publisher != nil {
		p.publisher.Publish(rec)
	}

	p.logger.Info("burn detected",
		zap.String("token", rec.Token),
		zap.String("amount", rec.AmountDisplay),
		zap.Float64("impact", rec.ImpactPercent),
		zap.String("tx", rec.TxHash),
	)
}
