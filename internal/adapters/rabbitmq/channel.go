package rabbitmq

import (
	"context"
	"fmt"
	"fxrelay/internal/domain"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Channel struct {
	ch       *amqp.Channel
	prefetch int
	done     chan struct{}
	once     sync.Once
}

func newChannel(ch *amqp.Channel, prefetch int) *Channel {
	return &Channel{ch: ch, prefetch: prefetch, done: make(chan struct{})}
}

// DeclareQueue asserts a durable, non-exclusive queue. Safe to repeat.
func (c *Channel) DeclareQueue(name string) error {
	if _, err := c.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", name, err)
	}
	return nil
}

// Publish sends msg to the default exchange and waits for the publisher confirm.
func (c *Channel) Publish(ctx context.Context, queue string, msg domain.Message) (bool, error) {
	mode := amqp.Transient
	if msg.Persistent {
		mode = amqp.Persistent
	}
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: mode,
		MessageId:    msg.ID,
		Timestamp:    msg.Timestamp,
		Body:         msg.Body,
	})
	if err != nil {
		return false, fmt.Errorf("failed to publish to %q: %w", queue, err)
	}
	if dc == nil {
		return true, nil
	}
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to wait for confirm from %q: %w", queue, err)
	}
	return acked, nil
}

func (c *Channel) Get(queue string) (*domain.Delivery, error) {
	d, ok, err := c.ch.Get(queue, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get from %q: %w", queue, err)
	}
	if !ok {
		return nil, nil
	}
	out := toDelivery(d)
	return &out, nil
}

// Consume starts a manual-ack consumer. The returned channel is closed when the
// underlying channel or connection goes away.
func (c *Channel) Consume(queue, consumer string) (<-chan domain.Delivery, error) {
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	src, err := c.ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %q: %w", queue, err)
	}
	out := make(chan domain.Delivery)
	go func() {
		defer close(out)
		for d := range src {
			select {
			case out <- toDelivery(d):
			case <-c.done:
				return
			}
		}
	}()
	return out, nil
}

func (c *Channel) Ack(tag uint64) error {
	return c.ch.Ack(tag, false)
}

func (c *Channel) Reject(tag uint64, requeue bool) error {
	return c.ch.Nack(tag, false, requeue)
}

func (c *Channel) Close() error {
	c.once.Do(func() { close(c.done) })
	if c.ch.IsClosed() {
		return nil
	}
	return c.ch.Close()
}

func toDelivery(d amqp.Delivery) domain.Delivery {
	return domain.Delivery{
		Tag:         d.DeliveryTag,
		MessageID:   d.MessageId,
		Body:        d.Body,
		Redelivered: d.Redelivered,
	}
}
