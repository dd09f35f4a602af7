package domain

import "time"

const ContentTypeJSON = "application/json"

// Message is what the publisher hands to a broker channel.
type Message struct {
	ID          string
	Body        []byte
	ContentType string
	Persistent  bool
	Timestamp   time.Time
}

// Delivery is a message received from a queue. Tag is only valid on the
// channel that delivered it.
type Delivery struct {
	Tag         uint64
	MessageID   string
	Body        []byte
	Redelivered bool
}
