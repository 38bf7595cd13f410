package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/dandy/internal/auth"
	"github.com/dukerupert/dandy/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	c3 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount(1); got != 2 {
		t.Fatalf("expected 2 clients for user 1, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(1); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	hub.Unregister(c3)
	if got := hub.ClientCount(1) + hub.ClientCount(2); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestNotifyTargetsUser(t *testing.T) {
	hub := NewHub(slog.Default())

	mine := mockClient(hub, 1)
	other := mockClient(hub, 2)
	hub.Register(mine)
	hub.Register(other)

	hub.Notify(1, Message{Type: EventSessionCreated, Provider: "custom"})

	select {
	case data := <-mine.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != EventSessionCreated {
			t.Errorf("type = %s, want %s", got.Type, EventSessionCreated)
		}
	default:
		t.Fatal("expected message for user 1")
	}

	select {
	case <-other.send:
		t.Fatal("user 2 should not receive user 1 events")
	default:
	}
}

func TestNotifyDropsWhenFull(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Notify(1, Message{Type: EventSessionDeleted})
	}
	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
}

func TestNotifyNilHub(t *testing.T) {
	var hub *Hub
	hub.Notify(1, Message{Type: EventSessionCreated})
}

func TestConcurrentNotify(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Notify(1, Message{Type: EventOAuthSignedIn})
		}()
	}
	wg.Wait()

	if got := len(c.send); got != 10 {
		t.Errorf("buffered = %d, want 10", got)
	}
	hub.Unregister(c)
}

func TestHandleEventsRequiresIdentity(t *testing.T) {
	hub := NewHub(slog.Default())
	rec := httptest.NewRecorder()
	HandleEvents(hub, nil, slog.Default())(rec, httptest.NewRequest("GET", "/api/auth/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleEventsStreams(t *testing.T) {
	hub := NewHub(slog.Default())
	h := HandleEvents(hub, nil, slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithIdentity(r.Context(), &auth.Identity{User: model.User{ID: 5}})
		h(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(5) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Notify(5, Message{Type: EventSessionDeleted})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventSessionDeleted {
		t.Errorf("type = %s, want %s", got.Type, EventSessionDeleted)
	}
}
