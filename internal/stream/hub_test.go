package stream

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Resanso/aquaseer-api/internal/sensor"
	"github.com/Resanso/aquaseer-api/internal/simulation"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
	got    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{got: make(chan struct{}, 64)}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	f.msgs = append(f.msgs, data)
	f.mu.Unlock()
	f.got <- struct{}{}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) wait(t *testing.T, n int) [][]byte {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i+1)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.msgs...)
}

func TestHubSendsInitialThenEvents(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	id := hub.Register(conn, []byte(`{"type":"snapshot"}`))
	defer hub.Unregister(id)

	hub.OnUpdate(context.Background(), simulation.Event{
		Kind:    simulation.EventTick,
		At:      time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Sensors: []sensor.Record{{ID: "1", Name: "Pond A - Main"}},
	})

	msgs := conn.wait(t, 2)
	if string(msgs[0]) != `{"type":"snapshot"}` {
		t.Fatalf("first message = %s", msgs[0])
	}
	var ev simulation.Event
	if err := json.Unmarshal(msgs[1], &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Kind != simulation.EventTick || len(ev.Sensors) != 1 || ev.Sensors[0].ID != "1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestHubUnregisterClosesConnection(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	id := hub.Register(conn, nil)
	if hub.Len() != 1 {
		t.Fatalf("expected one client")
	}
	hub.Unregister(id)
	hub.Unregister(id)
	if hub.Len() != 0 {
		t.Fatalf("expected no clients")
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if !conn.closed {
		t.Fatalf("connection not closed")
	}
}
