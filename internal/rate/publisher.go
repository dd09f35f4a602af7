package rate

import (
	"context"
	"errors"
	"fmt"
	"fxrelay/internal/adapters"
	"fxrelay/internal/broker"
	"fxrelay/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPublishTimeout = 5 * time.Second

// Human-readable outcomes of FetchAndSend.
const (
	MsgSent           = "Rates sent to MOM queue successfully."
	MsgNotConfigured  = "Message broker is not configured."
	MsgConnectFailed  = "Failed to connect to the message broker."
	MsgFetchFailed    = "Failed to fetch currency rates."
	MsgPublishFailed  = "Failed to send rates to MOM queue."
	MsgTimedOut       = "Sending rates timed out."
	MsgUnexpectedFail = "Unexpected error while sending rates."
)

// SendResult is the outcome of one fetch-and-send invocation. Rates is only set on success.
type SendResult struct {
	Success bool
	Message string
	Rates   domain.RateSnapshot
	Err     error
}

type Publisher struct {
	source         adapters.RateSource
	manager        *broker.Manager
	publishTimeout time.Duration
	now            func() time.Time
}

func NewPublisher(source adapters.RateSource, manager *broker.Manager, publishTimeout time.Duration) *Publisher {
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	return &Publisher{source: source, manager: manager, publishTimeout: publishTimeout, now: time.Now}
}

// FetchRates returns nil when the source fails; nothing is sent in that case.
func (p *Publisher) FetchRates(ctx context.Context) domain.RateSnapshot {
	logrus.Info("Fetching latest currency rates")
	rates, err := p.source.FetchRates(ctx)
	if err != nil {
		logrus.WithError(err).Error("Error fetching currency rates from API")
		return nil
	}
	logrus.WithField("currencies", len(rates)).Info("Rates fetched successfully")
	return rates
}

// Publish sends the snapshot as one persistent message and reports whether the
// broker accepted it. A false result must not be retried within the same invocation.
func (p *Publisher) Publish(ctx context.Context, snapshot domain.RateSnapshot, ch adapters.Channel, queue string) bool {
	body, err := snapshot.Encode()
	if err != nil {
		logrus.WithError(err).Error("Failed to encode rates")
		return false
	}
	msg := domain.Message{
		ID:          uuid.NewString(),
		Body:        body,
		ContentType: domain.ContentTypeJSON,
		Persistent:  true,
		Timestamp:   p.now(),
	}
	log := logrus.WithFields(logrus.Fields{"queue": queue, "message_id": msg.ID})

	pubCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	accepted, err := ch.Publish(pubCtx, queue, msg)
	if err != nil {
		log.WithError(err).Error("Error sending message to broker")
		return false
	}
	if !accepted {
		log.Error("Message was not accepted by the queue")
		return false
	}
	log.Info("[x] Sent rates to queue")
	return true
}

// FetchAndSend runs one short-lived invocation: connect, fetch, publish, close.
// It never panics and never returns a bare error; every failure becomes a SendResult.
func (p *Publisher) FetchAndSend(ctx context.Context) SendResult {
	var rates domain.RateSnapshot
	err := p.manager.WithSession(ctx, func(ctx context.Context, s *broker.Session) error {
		rates = p.FetchRates(ctx)
		if rates == nil {
			return domain.ErrFetch
		}
		if !p.Publish(ctx, rates, s.Channel, s.Queue) {
			return domain.ErrPublishRejected
		}
		return nil
	})
	if err != nil {
		return SendResult{Message: failureMessage(err), Err: err}
	}
	return SendResult{Success: true, Message: MsgSent, Rates: rates}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfig):
		return MsgNotConfigured
	case errors.Is(err, domain.ErrConnection):
		return MsgConnectFailed
	case errors.Is(err, domain.ErrFetch):
		return MsgFetchFailed
	case errors.Is(err, domain.ErrPublishRejected):
		return MsgPublishFailed
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return MsgTimedOut
	default:
		return MsgUnexpectedFail
	}
}

// SendJob adapts FetchAndSend to the scheduler.
func (p *Publisher) SendJob(ctx context.Context) error {
	res := p.FetchAndSend(ctx)
	if !res.Success {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}
	return nil
}
