package memory

import (
	"context"
	"errors"
	"fmt"
	"fxrelay/internal/adapters"
	"fxrelay/internal/domain"
	"sync"
)

var (
	ErrClosed        = errors.New("memory broker: closed")
	ErrUnknownQueue  = errors.New("memory broker: queue not declared")
	ErrDialRefused   = errors.New("memory broker: connection refused")
	ErrConnectionCut = errors.New("memory broker: connection dropped")
)

type stored struct {
	msg         domain.Message
	redelivered bool
}

type queueItem struct {
	messages []stored
}

// Broker is an in-process durable queue with manual acknowledgement. Messages
// held unacknowledged by a channel go back to the head of their queue when the
// channel closes.
type Broker struct {
	mu     sync.Mutex
	queues map[string]*queueItem
	conns  map[*Connection]struct{}
	// signal is closed and replaced on every enqueue.
	signal chan struct{}

	refuseDial    bool
	rejectPublish bool
	dials         int
}

func NewBroker() *Broker {
	return &Broker{
		queues: make(map[string]*queueItem),
		conns:  make(map[*Connection]struct{}),
		signal: make(chan struct{}),
	}
}

// RefuseDials makes every following Dial fail.
func (b *Broker) RefuseDials(refuse bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refuseDial = refuse
}

// RejectPublishes makes the broker nack every following publish.
func (b *Broker) RejectPublishes(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectPublish = reject
}

func (b *Broker) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Len counts ready (not in-flight) messages of a queue.
func (b *Broker) Len(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[queue]; ok {
		return len(q.messages)
	}
	return 0
}

// OpenConnections counts connections that were dialed and not closed yet.
func (b *Broker) OpenConnections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// DropConnections cuts every open connection as a broker restart would.
func (b *Broker) DropConnections() {
	b.mu.Lock()
	conns := make([]*Connection, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.shutdown(ErrConnectionCut)
	}
}

func (b *Broker) Dial(_ context.Context, _ string) (adapters.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dials++
	if b.refuseDial {
		return nil, ErrDialRefused
	}
	c := &Connection{broker: b, closed: make(chan error, 1), done: make(chan struct{})}
	b.conns[c] = struct{}{}
	return c, nil
}

func (b *Broker) declare(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[name]; !ok {
		b.queues[name] = &queueItem{}
	}
}

func (b *Broker) declared(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQueue, name)
	}
	return nil
}

func (b *Broker) enqueue(name string, items ...stored) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQueue, name)
	}
	q.messages = append(q.messages, items...)
	close(b.signal)
	b.signal = make(chan struct{})
	return nil
}

func (b *Broker) requeue(name string, items []stored) {
	if len(items) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return
	}
	q.messages = append(items, q.messages...)
	close(b.signal)
	b.signal = make(chan struct{})
}

// pop returns the head of the queue, or the signal to wait on when it is empty.
func (b *Broker) pop(name string) (stored, bool, <-chan struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return stored{}, false, nil, fmt.Errorf("%w: %q", ErrUnknownQueue, name)
	}
	if len(q.messages) == 0 {
		return stored{}, false, b.signal, nil
	}
	item := q.messages[0]
	q.messages = q.messages[1:]
	return item, true, nil, nil
}

func (b *Broker) forget(c *Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, c)
}
