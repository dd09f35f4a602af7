package adapters

import (
	"context"
	"fxrelay/internal/domain"
	"time"
)

type RateSource interface {
	FetchRates(ctx context.Context) (domain.RateSnapshot, error)
}

// Dialer opens transport sessions to the broker.
type Dialer interface {
	Dial(ctx context.Context, url string) (Connection, error)
}

type Connection interface {
	Channel() (Channel, error)
	// NotifyClose yields once when the connection goes away, then is closed.
	NotifyClose() <-chan error
	Close() error
}

// Channel is a logical broker session. It must not be used by more than one
// operation at a time.
type Channel interface {
	DeclareQueue(name string) error
	// Publish reports whether the broker accepted the message.
	Publish(ctx context.Context, queue string, msg domain.Message) (bool, error)
	// Get returns nil when the queue is empty.
	Get(queue string) (*domain.Delivery, error)
	Consume(queue, consumer string) (<-chan domain.Delivery, error)
	Ack(tag uint64) error
	Reject(tag uint64, requeue bool) error
	Close() error
}

type ProcessedRatesRepository interface {
	Save(ctx context.Context, processed domain.ProcessedRates) error
	Latest(ctx context.Context) (domain.ProcessedRates, error)
}

// RatesLog is the append-only processed-rates log.
type RatesLog interface {
	Append(line string) error
}

// DeliveryCache remembers message ids that were already recorded.
type DeliveryCache interface {
	Seen(messageID string) bool
	Remember(messageID string, ttl time.Duration)
}
