package rate

import (
	"context"
	"fmt"
	"fxrelay/internal/adapters"
	"fxrelay/internal/domain"
	"time"

	"github.com/sirupsen/logrus"
)

// Recorder writes a processed snapshot to the rates log and, when configured,
// to the journal. Journal is optional, so is the dedup cache.
type Recorder struct {
	log      adapters.RatesLog
	journal  adapters.ProcessedRatesRepository
	seen     adapters.DeliveryCache
	dedupTTL time.Duration
}

func NewRecorder(log adapters.RatesLog, journal adapters.ProcessedRatesRepository, seen adapters.DeliveryCache, dedupTTL time.Duration) *Recorder {
	return &Recorder{log: log, journal: journal, seen: seen, dedupTTL: dedupTTL}
}

// Record reports whether the snapshot was recorded (false for a duplicate).
func (r *Recorder) Record(ctx context.Context, p domain.ProcessedRates) (bool, error) {
	entry := logrus.WithField("message_id", p.MessageID)
	if r.seen != nil && r.seen.Seen(p.MessageID) {
		entry.Info("Rates were already recorded, skipping duplicate delivery")
		return false, nil
	}

	entry.Infof("[x] Received rates at %s", p.ProcessedAt.UTC().Format(time.RFC3339))

	if r.journal != nil {
		if err := r.journal.Save(ctx, p); err != nil {
			return false, fmt.Errorf("failed to journal processed rates: %w", err)
		}
	}
	if err := r.log.Append(p.LogLine()); err != nil {
		// best effort
		entry.WithError(err).Error("Failed to write rates log line")
	}
	if r.seen != nil {
		r.seen.Remember(p.MessageID, r.dedupTTL)
	}
	return true, nil
}
