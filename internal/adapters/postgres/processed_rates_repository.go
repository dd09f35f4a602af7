package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"fxrelay/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProcessedRatesRepository struct {
	pool *pgxpool.Pool
}

// Save journals a processed snapshot. Saving the same message id twice keeps the first row.
func (r *ProcessedRatesRepository) Save(ctx context.Context, processed domain.ProcessedRates) error {
	const q = `
		insert into processed_rates (message_id, base, sar_rate, rates, processed_at)
		values (nullif($1, ''), $2, $3, $4::jsonb, $5)
		on conflict (message_id) where message_id is not null do nothing;
	`

	ratesJSON, err := json.Marshal(processed.Rates)
	if err != nil {
		return fmt.Errorf("failed to marshal rates: %w", err)
	}

	var sar *float64
	if v, ok := processed.Rates.RateOf("SAR"); ok {
		sar = &v
	}

	_, err = r.pool.Exec(ctx, q, processed.MessageID, processed.Rates.Base(), sar, string(ratesJSON), processed.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to save processed rates: %w", err)
	}
	return nil
}

func (r *ProcessedRatesRepository) Latest(ctx context.Context) (domain.ProcessedRates, error) {
	const q = `
		select coalesce(message_id, ''), rates, processed_at
		from processed_rates
		order by processed_at desc, id desc
		limit 1;
	`

	var (
		p        domain.ProcessedRates
		rawRates []byte
	)
	err := r.pool.QueryRow(ctx, q).Scan(&p.MessageID, &rawRates, &p.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProcessedRates{}, domain.ErrNothingRecorded
		}
		return domain.ProcessedRates{}, fmt.Errorf("failed to query latest processed rates: %w", err)
	}
	if err = json.Unmarshal(rawRates, &p.Rates); err != nil {
		return domain.ProcessedRates{}, fmt.Errorf("failed to unmarshal stored rates: %w", err)
	}
	return p, nil
}

func NewProcessedRatesRepository(pool *pgxpool.Pool) *ProcessedRatesRepository {
	return &ProcessedRatesRepository{pool: pool}
}
