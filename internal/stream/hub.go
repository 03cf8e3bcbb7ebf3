package stream

import (
	"log/slog"
	"sync"
)

// Hub holds one live connection per authenticated operator and fans
// envelopes out to all of them. All operations are safe under concurrent
// register/unregister/broadcast.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	logger *slog.Logger
}

// NewHub creates an initialized Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[string]*Connection),
		logger: logger.With("component", "stream_hub"),
	}
}

// Register installs a connection for its operator identity. A prior
// connection for the same identity is torn down before the new one takes
// its place, so no timer pair outlives its stream.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	prior := h.conns[conn.OperatorID]
	h.conns[conn.OperatorID] = conn
	h.mu.Unlock()

	if prior != nil {
		prior.Teardown()
		h.logger.Info("replaced live connection", "operator_id", conn.OperatorID)
	}
}

// Unregister removes a connection. Idempotent, and a no-op when the identity
// has already been taken over by a newer connection.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if current, ok := h.conns[conn.OperatorID]; ok && current == conn {
		delete(h.conns, conn.OperatorID)
	}
	h.mu.Unlock()
}

// ForEach invokes fn over a snapshot of the registered connections. The
// snapshot is taken under the read lock; fn runs outside it.
func (h *Hub) ForEach(fn func(*Connection)) {
	h.mu.RLock()
	snapshot := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		snapshot = append(snapshot, conn)
	}
	h.mu.RUnlock()

	for _, conn := range snapshot {
		fn(conn)
	}
}

// Broadcast serializes the envelope once and writes it to every registered
// connection. A failed write tears down that connection only; delivery to
// the others continues and no error reaches the caller.
func (h *Hub) Broadcast(env Envelope) {
	payload, err := env.Marshal()
	if err != nil {
		h.logger.Warn("failed to marshal envelope", "kind", string(env.Kind), "error", err)
		return
	}
	h.ForEach(func(conn *Connection) {
		if err := conn.Send(payload); err != nil {
			h.logger.Warn("dropping dead connection", "operator_id", conn.OperatorID, "error", err)
			h.Unregister(conn)
			conn.Teardown()
		}
	})
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
