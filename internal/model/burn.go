package model

import (
	"math/big"
	"time"
)

// RawBurnEvent is one SwapTax log as emitted by the tax-swap contract.
type RawBurnEvent struct {
	Token       string
	Amount      *big.Int // smallest denomination
	TxHash      string
	BlockNumber uint64
}

// PoolReserves is a point-in-time snapshot of a pool's two-sided reserve,
// oriented so Token always refers to the queried token. Values are scaled
// to display units (1e18). A zero pair means the pool could not be resolved.
type PoolReserves struct {
	Token  float64
	Paired float64
}

// Unknown reports whether the snapshot is the unresolved sentinel.
func (r PoolReserves) Unknown() bool {
	return r.Token == 0 && r.Paired == 0
}

// EnrichedBurnRecord is the persisted and broadcast unit, keyed by TxHash.
type EnrichedBurnRecord struct {
	TxHash         string    `json:"tx"`
	Token          string    `json:"token"`
	AmountDisplay  string    `json:"amount"`
	ReserveDisplay string    `json:"reserve"`
	PairedReserve  float64   `json:"paired_reserve"`
	ImpactPercent  float64   `json:"impact"`
	CapturedAt     time.Time `json:"time"`

	// Backfilled by the market-data service, never set here.
	Symbol string  `json:"symbol,omitempty"`
	FDV    float64 `json:"fdv,omitempty"`
}
