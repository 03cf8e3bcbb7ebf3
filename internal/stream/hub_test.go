package stream

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type testSink struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	fail   bool
}

func (s *testSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink gone")
	}
	copied := append([]byte(nil), payload...)
	s.sent = append(s.sent, copied)
	return nil
}

func (s *testSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *testSink) payloads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *testSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBroadcastDeliversToAllRegisteredInOrder(t *testing.T) {
	hub := NewHub(testLogger())
	sinkA := &testSink{}
	sinkB := &testSink{}
	hub.Register(NewConnection("op-a", sinkA, nil))
	hub.Register(NewConnection("op-b", sinkB, nil))

	for i := 0; i < 3; i++ {
		hub.Broadcast(NewEnvelope(EventNotification, map[string]any{"seq": i}))
	}

	for name, sink := range map[string]*testSink{"a": sinkA, "b": sinkB} {
		payloads := sink.payloads()
		if len(payloads) != 3 {
			t.Fatalf("sink %s: expected 3 payloads, got %d", name, len(payloads))
		}
		for i, payload := range payloads {
			var msg struct {
				Type      string         `json:"type"`
				Timestamp string         `json:"timestamp"`
				Data      map[string]any `json:"data"`
			}
			if err := json.Unmarshal(payload, &msg); err != nil {
				t.Fatalf("sink %s: unmarshal payload %d: %v", name, i, err)
			}
			if msg.Type != string(EventNotification) {
				t.Fatalf("sink %s: unexpected type %q", name, msg.Type)
			}
			if msg.Timestamp == "" {
				t.Fatalf("sink %s: missing timestamp", name)
			}
			if seq, ok := msg.Data["seq"].(float64); !ok || int(seq) != i {
				t.Fatalf("sink %s: expected seq %d, got %v", name, i, msg.Data["seq"])
			}
		}
	}
}

func TestBroadcastDropsFailingSinkOnly(t *testing.T) {
	hub := NewHub(testLogger())
	healthy := &testSink{}
	broken := &testSink{fail: true}
	hub.Register(NewConnection("op-healthy", healthy, nil))
	hub.Register(NewConnection("op-broken", broken, nil))

	hub.Broadcast(NewEnvelope(EventActivity, map[string]any{"kind": "probe"}))

	if got := len(healthy.payloads()); got != 1 {
		t.Fatalf("expected healthy sink to receive 1 payload, got %d", got)
	}
	if hub.Len() != 1 {
		t.Fatalf("expected broken sink to be unregistered, got %d connections", hub.Len())
	}
	if !broken.isClosed() {
		t.Fatal("expected broken sink to be closed")
	}

	hub.Broadcast(NewEnvelope(EventActivity, nil))
	if got := len(healthy.payloads()); got != 2 {
		t.Fatalf("expected healthy sink to keep receiving, got %d payloads", got)
	}
}

func TestRegisterReplacesAndTearsDownPriorConnection(t *testing.T) {
	hub := NewHub(testLogger())
	cancelled := false
	oldSink := &testSink{}
	old := NewConnection("op-1", oldSink, func() { cancelled = true })
	hub.Register(old)

	newSink := &testSink{}
	hub.Register(NewConnection("op-1", newSink, nil))

	if hub.Len() != 1 {
		t.Fatalf("expected one live connection per identity, got %d", hub.Len())
	}
	if !cancelled {
		t.Fatal("expected prior connection's cancel func to run")
	}
	if !oldSink.isClosed() {
		t.Fatal("expected prior sink to be closed")
	}

	hub.Broadcast(NewEnvelope(EventKeepalive, nil))
	if got := len(newSink.payloads()); got != 1 {
		t.Fatalf("expected replacement sink to receive broadcast, got %d", got)
	}
}

func TestUnregisterIsIdempotentAndReplacementSafe(t *testing.T) {
	hub := NewHub(testLogger())
	old := NewConnection("op-1", &testSink{}, nil)
	hub.Register(old)

	replacement := NewConnection("op-1", &testSink{}, nil)
	hub.Register(replacement)

	// The old connection's deferred unregister must not evict the
	// replacement that took over the identity.
	hub.Unregister(old)
	hub.Unregister(old)
	if hub.Len() != 1 {
		t.Fatalf("expected replacement to stay registered, got %d connections", hub.Len())
	}

	hub.Unregister(replacement)
	if hub.Len() != 0 {
		t.Fatalf("expected empty registry, got %d connections", hub.Len())
	}
	hub.Unregister(replacement)
}

func TestConnectionTeardownRunsOnce(t *testing.T) {
	calls := 0
	sink := &testSink{}
	conn := NewConnection("op-1", sink, func() { calls++ })

	conn.Teardown()
	conn.Teardown()

	if calls != 1 {
		t.Fatalf("expected cancel to run exactly once, got %d", calls)
	}
	if !sink.isClosed() {
		t.Fatal("expected sink closed after teardown")
	}
}

func TestConcurrentRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := NewConnection(string(rune('a'+i)), &testSink{}, nil)
			hub.Register(conn)
			hub.Broadcast(NewEnvelope(EventKeepalive, nil))
			hub.Unregister(conn)
		}(i)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent hub operations did not finish")
	}
	if hub.Len() != 0 {
		t.Fatalf("expected empty registry after teardown, got %d", hub.Len())
	}
}
