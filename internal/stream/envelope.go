package stream

import (
	"encoding/json"
	"time"
)

// EventKind discriminates envelope payloads on the wire. Consumers must
// ignore kinds they do not recognize.
type EventKind string

const (
	EventConnected      EventKind = "connected"
	EventKeepalive      EventKind = "keepalive"
	EventMetricsUpdate  EventKind = "metrics_update"
	EventInitialMetrics EventKind = "initial_metrics"
	EventActivity       EventKind = "activity_event"
	EventNotification   EventKind = "notification"
)

// Envelope is the tagged payload unit pushed over a stream. Immutable once
// constructed.
type Envelope struct {
	Kind      EventKind
	Payload   any
	EmittedAt time.Time
}

// NewEnvelope stamps an envelope with the current time.
func NewEnvelope(kind EventKind, payload any) Envelope {
	return Envelope{Kind: kind, Payload: payload, EmittedAt: time.Now().UTC()}
}

// Marshal encodes the envelope as a JSON object with a type discriminator
// and emission timestamp.
func (e Envelope) Marshal() ([]byte, error) {
	out := map[string]any{
		"type":      string(e.Kind),
		"timestamp": e.EmittedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.Payload != nil {
		out["data"] = e.Payload
	}
	return json.Marshal(out)
}
