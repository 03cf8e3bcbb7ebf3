package stream

import (
	"context"
	"sync"
	"time"
)

// Subscriber abstracts the writable endpoint of one operator's open stream.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Connection ties an operator identity to a sink for the lifetime of one
// open stream. The hub owns the identity mapping; the connection owns its
// teardown.
type Connection struct {
	OperatorID string
	OpenedAt   time.Time

	sink   Subscriber
	cancel context.CancelFunc
	once   sync.Once
}

// NewConnection builds a connection around an accepted sink. cancel stops
// the per-connection tickers when teardown runs.
func NewConnection(operatorID string, sink Subscriber, cancel context.CancelFunc) *Connection {
	return &Connection{
		OperatorID: operatorID,
		OpenedAt:   time.Now().UTC(),
		sink:       sink,
		cancel:     cancel,
	}
}

// Send writes a pre-marshaled payload to the sink.
func (c *Connection) Send(payload []byte) error {
	return c.sink.Send(payload)
}

// SendEnvelope marshals and writes a single envelope.
func (c *Connection) SendEnvelope(env Envelope) error {
	payload, err := env.Marshal()
	if err != nil {
		return err
	}
	return c.sink.Send(payload)
}

// Teardown cancels the connection's tickers and closes the sink. Every exit
// path (disconnect, write failure, replacement) funnels here; only the first
// call has effect.
func (c *Connection) Teardown() {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.sink.Close()
	})
}
