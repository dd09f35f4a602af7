package rate

import (
	"context"
	"errors"
	"fmt"
	"fxrelay/internal/adapters"
	"fxrelay/internal/broker"
	"fxrelay/internal/domain"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requeuePauseInitial = time.Second
	requeuePauseMax     = 30 * time.Second
)

type Subscriber struct {
	manager     *broker.Manager
	recorder    *Recorder
	consumerTag string
	now         func() time.Time
	// paces the consume loop after a delivery was requeued
	requeuePause backoff.BackOff
}

func NewSubscriber(manager *broker.Manager, recorder *Recorder) *Subscriber {
	return &Subscriber{
		manager:      manager,
		recorder:     recorder,
		consumerTag:  "fxrelay-" + uuid.NewString(),
		now:          time.Now,
		requeuePause: newRequeuePause(),
	}
}

func newRequeuePause() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = requeuePauseInitial
	b.MaxInterval = requeuePauseMax
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Process handles one delivery and settles it on ch. The ack is sent only after
// the snapshot has been recorded. An undecodable body is still acknowledged so it
// cannot block the queue; a recording failure requeues the message.
func (s *Subscriber) Process(ctx context.Context, ch adapters.Channel, d domain.Delivery) error {
	log := logrus.WithFields(logrus.Fields{
		"delivery_tag": d.Tag,
		"message_id":   d.MessageID,
		"redelivered":  d.Redelivered,
	})

	snapshot, err := domain.DecodeSnapshot(d.Body)
	if err != nil {
		log.WithError(err).Warn("Dropping undecodable message")
		if ackErr := ch.Ack(d.Tag); ackErr != nil {
			return fmt.Errorf("failed to ack undecodable message: %w", ackErr)
		}
		return err
	}

	processed := domain.ProcessedRates{MessageID: d.MessageID, Rates: snapshot, ProcessedAt: s.now()}
	if _, err = s.recorder.Record(ctx, processed); err != nil {
		log.WithError(err).Error("Processing failed, requeueing message")
		if rejectErr := ch.Reject(d.Tag, true); rejectErr != nil {
			log.WithError(rejectErr).Error("Failed to requeue message")
		}
		return err
	}

	if err = ch.Ack(d.Tag); err != nil {
		log.WithError(err).Error("Failed to acknowledge message")
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

// GetOne pulls a single message without waiting. It returns nil when the queue is empty.
func (s *Subscriber) GetOne(ctx context.Context, ch adapters.Channel, queue string) (*domain.Delivery, error) {
	d, err := ch.Get(queue)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	if d == nil {
		logrus.WithField("queue", queue).Info("No messages in queue")
		return nil, nil
	}
	return d, s.Process(ctx, ch, *d)
}

// PollOnce is one short-lived pull invocation; the connection is closed on every path.
func (s *Subscriber) PollOnce(ctx context.Context) error {
	return s.manager.WithSession(ctx, func(ctx context.Context, session *broker.Session) error {
		_, err := s.GetOne(ctx, session.Channel, session.Queue)
		if errors.Is(err, domain.ErrDecode) {
			return nil
		}
		return err
	})
}

// Run consumes continuously until ctx is done or the broker connection is lost.
// A lost connection ends the loop with an ErrConnection; restarting is left to
// the process supervisor.
func (s *Subscriber) Run(ctx context.Context) error {
	session, err := s.manager.AcquireWithRetry(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	log := logrus.WithField("queue", session.Queue)
	closed := session.Conn.NotifyClose()
	deliveries, err := session.Channel.Consume(session.Queue, s.consumerTag)
	if err != nil {
		log.WithError(err).Error("Failed to start consuming")
		return fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	log.Info("[*] Waiting for messages")

	for {
		select {
		case <-ctx.Done():
			log.Info("Consumer loop stopped: shutdown requested")
			return nil
		case reason := <-closed:
			if reason == nil {
				reason = errors.New("connection closed")
			}
			log.WithError(reason).Error("Consumer loop terminated: broker connection lost")
			return fmt.Errorf("%w: %w", domain.ErrConnection, reason)
		case d, ok := <-deliveries:
			if !ok {
				log.Error("Consumer loop terminated: delivery stream closed")
				return fmt.Errorf("%w: delivery stream closed", domain.ErrConnection)
			}
			// failures are logged and settled inside Process
			err = s.Process(ctx, session.Channel, d)
			if err == nil || errors.Is(err, domain.ErrDecode) {
				s.requeuePause.Reset()
				continue
			}
			if !s.pause(ctx) {
				log.Info("Consumer loop stopped: shutdown requested")
				return nil
			}
		}
	}
}

// pause waits before the next delivery is taken after a failed one.
// It reports false when ctx ended first.
func (s *Subscriber) pause(ctx context.Context) bool {
	wait := s.requeuePause.NextBackOff()
	if wait == backoff.Stop {
		wait = requeuePauseMax
	}
	logrus.WithField("wait", wait.String()).Warn("Pausing consumer after a failed delivery")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
