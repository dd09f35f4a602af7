package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RateSnapshot maps a currency code to its rate against the source base.
type RateSnapshot map[string]float64

func (s RateSnapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses a message body. A JSON null or a non-object body is an ErrDecode.
func DecodeSnapshot(body []byte) (RateSnapshot, error) {
	var s RateSnapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: empty body", ErrDecode)
	}
	return s, nil
}

// Base reports "USD" when the snapshot carries a non-zero USD rate.
func (s RateSnapshot) Base() string {
	if s["USD"] != 0 {
		return "USD"
	}
	return "N/A"
}

func (s RateSnapshot) RateOf(code string) (float64, bool) {
	v, ok := s[code]
	if !ok || v == 0 {
		return 0, false
	}
	return v, true
}

// ProcessedRates is what the consumer records for every delivered snapshot.
type ProcessedRates struct {
	MessageID   string       `json:"message_id,omitempty"`
	Rates       RateSnapshot `json:"rates"`
	ProcessedAt time.Time    `json:"processed_at"`
}

const isoMillis = "2006-01-02T15:04:05.000Z"

// LogLine renders the processed-rates sink line.
func (p ProcessedRates) LogLine() string {
	sar := "N/A"
	if v, ok := p.Rates.RateOf("SAR"); ok {
		sar = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprintf("[%s] Successfully processed new rates. Base: %s, SAR Rate: %s",
		p.ProcessedAt.UTC().Format(isoMillis), p.Rates.Base(), sar)
}
