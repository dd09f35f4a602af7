package rabbitmq

import (
	"context"
	"fmt"
	"fxrelay/internal/adapters"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	connectTimeout = 10 * time.Second
	heartbeat      = 10 * time.Second
)

// Dialer opens AMQP 0-9-1 connections.
type Dialer struct {
	// Prefetch bounds unacknowledged deliveries per consumer; 0 means 1.
	Prefetch int
}

func NewDialer(prefetch int) *Dialer {
	return &Dialer{Prefetch: prefetch}
}

func (d *Dialer) Dial(ctx context.Context, url string) (adapters.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			nd := net.Dialer{Timeout: connectTimeout}
			c, err := nd.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// cleared by the client once the AMQP handshake completes
			if err = c.SetDeadline(time.Now().Add(connectTimeout)); err != nil {
				_ = c.Close()
				return nil, err
			}
			return c, nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}
	prefetch := d.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Connection{conn: conn, prefetch: prefetch}, nil
}

type Connection struct {
	conn     *amqp.Connection
	prefetch int
}

func (c *Connection) Channel() (adapters.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err = ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	return newChannel(ch, c.prefetch), nil
}

func (c *Connection) NotifyClose() <-chan error {
	src := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	out := make(chan error, 1)
	go func() {
		defer close(out)
		if reason, ok := <-src; ok && reason != nil {
			out <- reason
			return
		}
		out <- amqp.ErrClosed
	}()
	return out
}

func (c *Connection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
