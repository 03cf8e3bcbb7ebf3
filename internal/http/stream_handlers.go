package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/atlixcomx/mascotas-sub001/internal/stream"
)

// handleEventStream serves the long-lived SSE channel for one operator.
// The connection is registered before the first payload; every exit path
// (disconnect, write failure, replacement by a newer connection) stops both
// periodic tickers and removes the registry entry.
func (r *Router) handleEventStream(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for event stream", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	client := stream.NewSSEClient(w, flusher, r.logger)
	conn := stream.NewConnection(info.UserID, client, cancel)
	r.hub.Register(conn)
	defer func() {
		r.hub.Unregister(conn)
		conn.Teardown()
	}()

	r.logger.Info("event stream opened", "operator_id", info.UserID)
	r.serveStream(ctx, conn)
	r.logger.Info("event stream closed", "operator_id", info.UserID)
}

// handleEventStreamWS serves the same envelope stream over a websocket.
func (r *Router) handleEventStreamWS(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for event stream", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	sock, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	client := stream.NewWSClient(sock, r.logger)
	conn := stream.NewConnection(info.UserID, client, cancel)
	r.hub.Register(conn)
	defer func() {
		r.hub.Unregister(conn)
		conn.Teardown()
	}()

	// Read pump: the only purpose is to observe the peer closing.
	go func() {
		for {
			if _, _, err := sock.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	r.logger.Info("event stream opened", "operator_id", info.UserID, "transport", "websocket")
	r.serveStream(ctx, conn)
	r.logger.Info("event stream closed", "operator_id", info.UserID, "transport", "websocket")
}

// serveStream pushes the initial snapshot and then keeps the connection
// alive with independent keepalive and metrics tickers until the context
// is cancelled or a write fails.
func (r *Router) serveStream(ctx context.Context, conn *stream.Connection) {
	if err := conn.SendEnvelope(stream.NewEnvelope(stream.EventConnected, map[string]any{
		"operator_id": conn.OperatorID,
	})); err != nil {
		return
	}
	if !r.pushSnapshot(ctx, conn, stream.EventInitialMetrics) {
		return
	}

	heartbeat := time.NewTicker(r.heartbeatInterval)
	defer heartbeat.Stop()
	refresh := time.NewTicker(r.metricsInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := conn.SendEnvelope(stream.NewEnvelope(stream.EventKeepalive, nil)); err != nil {
				return
			}
		case <-refresh.C:
			if !r.pushSnapshot(ctx, conn, stream.EventMetricsUpdate) {
				return
			}
		}
	}
}

// pushSnapshot builds and sends one metrics envelope. A store failure skips
// the tick and keeps the connection; only a write failure ends it.
func (r *Router) pushSnapshot(ctx context.Context, conn *stream.Connection, kind stream.EventKind) bool {
	snapshot, err := r.metrics.Build(ctx)
	if err != nil {
		r.logger.Warn("skipping metrics tick", "error", err, "operator_id", conn.OperatorID)
		return true
	}
	return conn.SendEnvelope(stream.NewEnvelope(kind, snapshot)) == nil
}
