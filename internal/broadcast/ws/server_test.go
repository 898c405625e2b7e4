package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/broadcomms/brainstormx/internal/broadcast"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialRoom(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, resp, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func waitForRoom(t *testing.T, hub *Hub, room string, size int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(room) != size {
		if time.Now().After(deadline) {
			t.Fatalf("room %s never reached %d clients", room, size)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversRoomEvents(t *testing.T) {
	hub := NewHub(Config{}, discardLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dialRoom(t, srv.URL+"?workshop_id=7")
	room := broadcast.Room(7)
	waitForRoom(t, hub, room, 1)

	hub.Emit(room, "brainstorming_started", map[string]any{"workshop_id": int64(7), "prompt": "Go"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}

	var env broadcast.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if env.Event != "brainstorming_started" || env.Room != room {
		t.Errorf("envelope = %+v", env)
	}
	if env.Payload["prompt"] != "Go" {
		t.Errorf("payload = %v", env.Payload)
	}
	if env.EmittedAt.IsZero() {
		t.Error("envelope missing emit timestamp")
	}
}

func TestHubIsolatesRooms(t *testing.T) {
	hub := NewHub(Config{}, discardLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	connA := dialRoom(t, srv.URL+"?workshop_id=1")
	dialRoom(t, srv.URL+"?workshop_id=2")
	waitForRoom(t, hub, broadcast.Room(1), 1)
	waitForRoom(t, hub, broadcast.Room(2), 1)

	hub.Emit(broadcast.Room(1), "workshop_paused", map[string]any{"workshop_id": int64(1)})
	hub.EmitTimerSync(broadcast.Room(1), broadcast.TimerState{RemainingSeconds: 60}, 1)

	// Room 1 sees both events in emit order.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, want := range []string{"workshop_paused", broadcast.EventTimerSync} {
		_, data, err := connA.Read(ctx)
		if err != nil {
			t.Fatalf("reading %s: %v", want, err)
		}
		var env broadcast.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("decoding envelope: %v", err)
		}
		if env.Event != want {
			t.Errorf("event = %q, want %q", env.Event, want)
		}
	}
}

func TestHubRejectsBadRequests(t *testing.T) {
	hub := NewHub(Config{Token: "sesame"}, discardLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Wrong token.
	if _, resp, err := websocket.Dial(ctx, srv.URL+"?workshop_id=1&token=guess", nil); err == nil {
		t.Error("wrong token accepted")
	} else if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	// Missing workshop id.
	if _, resp, err := websocket.Dial(ctx, srv.URL+"?token=sesame", nil); err == nil {
		t.Error("missing workshop_id accepted")
	} else if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	// Correct token connects.
	conn := dialRoom(t, srv.URL+"?workshop_id=1&token=sesame")
	_ = conn
	waitForRoom(t, hub, broadcast.Room(1), 1)
}
