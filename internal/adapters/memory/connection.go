package memory

import (
	"context"
	"fmt"
	"fxrelay/internal/adapters"
	"fxrelay/internal/domain"
	"sync"
)

type Connection struct {
	broker *Broker

	mu       sync.Mutex
	channels []*Channel
	closed   chan error
	done     chan struct{}
	once     sync.Once
}

func (c *Connection) Channel() (adapters.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}
	ch := &Channel{conn: c, unacked: make(map[uint64]inflight), done: make(chan struct{})}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *Connection) NotifyClose() <-chan error {
	return c.closed
}

func (c *Connection) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Connection) shutdown(reason error) {
	c.once.Do(func() {
		c.mu.Lock()
		channels := c.channels
		c.mu.Unlock()
		for _, ch := range channels {
			_ = ch.Close()
		}
		close(c.done)
		c.closed <- reason
		close(c.closed)
		c.broker.forget(c)
	})
}

type inflight struct {
	queue string
	item  stored
}

type Channel struct {
	conn *Connection

	mu      sync.Mutex
	nextTag uint64
	unacked map[uint64]inflight
	closed  bool
	done    chan struct{}
	once    sync.Once
}

func (c *Channel) DeclareQueue(name string) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.conn.broker.declare(name)
	return nil
}

func (c *Channel) Publish(ctx context.Context, queue string, msg domain.Message) (bool, error) {
	if c.isClosed() {
		return false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b := c.conn.broker
	b.mu.Lock()
	reject := b.rejectPublish
	b.mu.Unlock()
	if reject {
		return false, nil
	}
	if err := b.enqueue(queue, stored{msg: msg}); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Channel) Get(queue string) (*domain.Delivery, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	item, ok, _, err := c.conn.broker.pop(queue)
	if err != nil || !ok {
		return nil, err
	}
	d, tracked := c.track(queue, item)
	if !tracked {
		return nil, ErrClosed
	}
	return &d, nil
}

func (c *Channel) Consume(queue, _ string) (<-chan domain.Delivery, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if err := c.conn.broker.declared(queue); err != nil {
		return nil, err
	}
	out := make(chan domain.Delivery)
	go func() {
		defer close(out)
		for {
			item, ok, wait, err := c.conn.broker.pop(queue)
			if err != nil {
				return
			}
			if !ok {
				select {
				case <-wait:
					continue
				case <-c.done:
					return
				}
			}
			d, tracked := c.track(queue, item)
			if !tracked {
				return
			}
			select {
			case out <- d:
			case <-c.done:
				return
			}
		}
	}()
	return out, nil
}

func (c *Channel) Ack(tag uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.unacked[tag]; !ok {
		return fmt.Errorf("memory broker: unknown delivery tag %d", tag)
	}
	delete(c.unacked, tag)
	return nil
}

func (c *Channel) Reject(tag uint64, requeue bool) error {
	c.mu.Lock()
	f, ok := c.unacked[tag]
	delete(c.unacked, tag)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("memory broker: unknown delivery tag %d", tag)
	}
	if requeue {
		f.item.redelivered = true
		c.conn.broker.requeue(f.queue, []stored{f.item})
	}
	return nil
}

// Close returns every unacknowledged delivery to its queue.
func (c *Channel) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		pending := c.unacked
		lastTag := c.nextTag
		c.unacked = make(map[uint64]inflight)
		c.mu.Unlock()

		byQueue := make(map[string][]stored)
		for tag := uint64(1); tag <= lastTag; tag++ {
			if f, ok := pending[tag]; ok {
				f.item.redelivered = true
				byQueue[f.queue] = append(byQueue[f.queue], f.item)
			}
		}
		for q, items := range byQueue {
			c.conn.broker.requeue(q, items)
		}
	})
	return nil
}

// track assigns a delivery tag. A channel closed meanwhile hands the item back
// to the queue instead.
func (c *Channel) track(queue string, item stored) (domain.Delivery, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.conn.broker.requeue(queue, []stored{item})
		return domain.Delivery{}, false
	}
	defer c.mu.Unlock()
	c.nextTag++
	c.unacked[c.nextTag] = inflight{queue: queue, item: item}
	return domain.Delivery{
		Tag:         c.nextTag,
		MessageID:   item.msg.ID,
		Body:        item.msg.Body,
		Redelivered: item.redelivered,
	}, true
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
