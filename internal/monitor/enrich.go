package monitor

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"burnwatch/internal/dex"
	"burnwatch/internal/model"
)

// ReserveSource resolves a token's oriented pool reserves. The zero
// snapshot means unknown.
type ReserveSource interface {
	Resolve(ctx context.Context, token common.Address) model.PoolReserves
}

// Enricher turns raw burn events into complete records. Enrich never fails:
// an unresolvable pool degrades to a zero-impact record.
type Enricher struct {
	reserves ReserveSource
	now      func() time.Time
}

func NewEnricher(reserves ReserveSource) *Enricher {
	return &Enricher{reserves: reserves, now: time.Now}
}

// Enrich builds the display-formatted record for one burn event, stamped
// with the capture-time wall clock. Symbol and FDV stay empty for the
// market-data backfill job.
func (e *Enricher) Enrich(ctx context.Context, event model.RawBurnEvent) model.EnrichedBurnRecord {
	amount := dex.FromWei(event.Amount)
	reserves := e.reserves.Resolve(ctx, common.HexToAddress(event.Token))

	return model.EnrichedBurnRecord{
		TxHash:         event.TxHash,
		Token:          event.Token,
		AmountDisplay:  FormatAmount(amount),
		ReserveDisplay: FormatAmount(reserves.Token),
		PairedReserve:  reserves.Paired,
		ImpactPercent:  Impact(amount, reserves.Token),
		CapturedAt:     e.now().UTC(),
	}
}
