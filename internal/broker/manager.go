package broker

import (
	"context"
	"errors"
	"fmt"
	"fxrelay/internal/adapters"
	"fxrelay/internal/domain"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const defaultReconnectInterval = 5 * time.Second

// Target is the broker address and queue every session is bound to.
type Target struct {
	URL   string
	Queue string
}

// Validate fails with ErrConfig without touching the network.
func (t Target) Validate() error {
	if t.URL == "" {
		return fmt.Errorf("%w: broker url is not set", domain.ErrConfig)
	}
	if t.Queue == "" {
		return fmt.Errorf("%w: queue name is not set", domain.ErrConfig)
	}
	if _, err := amqp.ParseURI(t.URL); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	return nil
}

// Session is an open connection with one channel whose queue has been declared.
type Session struct {
	Conn    adapters.Connection
	Channel adapters.Channel
	Queue   string

	once sync.Once
}

// Close tears down the channel and the connection. Only the first call has an effect.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		logrus.WithField("queue", s.Queue).Info("Closing broker connection")
		chErr := s.Channel.Close()
		connErr := s.Conn.Close()
		err = errors.Join(chErr, connErr)
	})
	return err
}

type Manager struct {
	dialer            adapters.Dialer
	target            Target
	reconnectInterval time.Duration
}

func NewManager(dialer adapters.Dialer, target Target, reconnectInterval time.Duration) *Manager {
	if reconnectInterval <= 0 {
		reconnectInterval = defaultReconnectInterval
	}
	return &Manager{dialer: dialer, target: target, reconnectInterval: reconnectInterval}
}

func (m *Manager) Target() Target { return m.target }

// Acquire connects once, opens a channel and declares the durable queue.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	if err := m.target.Validate(); err != nil {
		logrus.WithError(err).Error("Broker is not configured")
		return nil, err
	}
	log := logrus.WithField("queue", m.target.Queue)
	log.Info("Connecting to broker")

	conn, err := m.dialer.Dial(ctx, m.target.URL)
	if err != nil {
		log.WithError(err).Error("Broker connection failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		log.WithError(err).Error("Broker channel failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	if err = ch.DeclareQueue(m.target.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		log.WithError(err).Error("Queue declaration failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}

	log.Info("Connected to broker and asserted queue")
	return &Session{Conn: conn, Channel: ch, Queue: m.target.Queue}, nil
}

// AcquireWithRetry keeps calling Acquire with a fixed pause until it succeeds,
// the configuration turns out to be invalid, or ctx is done.
func (m *Manager) AcquireWithRetry(ctx context.Context) (*Session, error) {
	attempt := 0
	op := func() (*Session, error) {
		attempt++
		s, err := m.Acquire(ctx)
		if errors.Is(err, domain.ErrConfig) {
			return nil, backoff.Permanent(err)
		}
		return s, err
	}
	notify := func(err error, wait time.Duration) {
		logrus.WithError(err).WithFields(logrus.Fields{
			"queue":   m.target.Queue,
			"attempt": attempt,
		}).Warnf("Retrying broker connection in %s", wait)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(m.reconnectInterval), ctx)
	s, err := backoff.RetryNotifyWithData(op, b, notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, domain.ErrConfig) {
			return nil, fmt.Errorf("broker connection abandoned: %w", ctxErr)
		}
		return nil, err
	}
	return s, nil
}

// WithSession runs fn on a fresh session and closes it on every exit path,
// including ctx expiring while fn is still blocked and fn panicking.
func (m *Manager) WithSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	s, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("session operation panicked: %v", r)
			}
		}()
		done <- fn(ctx, s)
	}()

	return awaitResult(ctx, s.Queue, done)
}

// awaitResult returns the operation result, or ctx.Err() when ctx ends first.
// A result that is already available wins over an expired ctx.
func awaitResult(ctx context.Context, queue string, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
		}
		logrus.WithField("queue", queue).Warn("Session aborted before the operation finished")
		return ctx.Err()
	}
}
