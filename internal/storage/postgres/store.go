package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"burnwatch/internal/model"
)

// Store is the durable HistoryStore backing. The burns table is keyed by
// tx_hash; duplicate inserts are no-ops, never overwrites.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the burns table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS burns (
			tx_hash         TEXT PRIMARY KEY,
			token           TEXT NOT NULL,
			amount_display  TEXT NOT NULL,
			reserve_display TEXT NOT NULL,
			paired_reserve  DOUBLE PRECISION NOT NULL,
			impact_percent  DOUBLE PRECISION NOT NULL,
			symbol          TEXT NOT NULL DEFAULT '',
			fdv             DOUBLE PRECISION NOT NULL DEFAULT 0,
			captured_at     TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure burns table: %w", err)
	}
	return nil
}

// InsertIfAbsent stores the record unless its tx_hash is already present.
func (s *Store) InsertIfAbsent(ctx context.Context, rec model.EnrichedBurnRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO burns (
			tx_hash, token, amount_display, reserve_display, paired_reserve,
			impact_percent, symbol, fdv, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tx_hash) DO NOTHING
	`,
		rec.TxHash,
		rec.Token,
		rec.AmountDisplay,
		rec.ReserveDisplay,
		rec.PairedReserve,
		rec.ImpactPercent,
		rec.Symbol,
		rec.FDV,
		rec.CapturedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecentN returns up to n records, newest-first by capture time.
func (s *Store) RecentN(ctx context.Context, n int) ([]model.EnrichedBurnRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, token, amount_display, reserve_display, paired_reserve,
		       impact_percent, symbol, fdv, captured_at
		FROM burns
		ORDER BY captured_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.EnrichedBurnRecord, 0, n)
	for rows.Next() {
		var rec model.EnrichedBurnRecord
		if err := rows.Scan(
			&rec.TxHash,
			&rec.Token,
			&rec.AmountDisplay,
			&rec.ReserveDisplay,
			&rec.PairedReserve,
			&rec.ImpactPercent,
			&rec.Symbol,
			&rec.FDV,
			&rec.CapturedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
