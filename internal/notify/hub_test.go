package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/skill-accelerator/internal/identity"
)

func TestHubPublishFansOutPerUser(t *testing.T) {
	h := NewHub()
	a1 := h.subscribe("alice", "tab-1")
	a2 := h.subscribe("alice", "tab-2")
	b := h.subscribe("bob", "tab-1")

	h.Publish("alice", Event{Type: EventToast, Message: "Video Verified! +50 XP"})

	for _, sub := range []*subscriber{a1, a2} {
		select {
		case data := <-sub.send:
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if ev.Message != "Video Verified! +50 XP" || ev.Timestamp.IsZero() {
				t.Errorf("unexpected event: %+v", ev)
			}
		default:
			t.Fatal("expected event for alice's tab")
		}
	}
	select {
	case <-b.send:
		t.Fatal("bob received alice's event")
	default:
	}
}

func TestHubReplaceAndStaleUnsubscribe(t *testing.T) {
	h := NewHub()
	old := h.subscribe("alice", "tab-1")
	current := h.subscribe("alice", "tab-1")

	if _, ok := <-old.send; ok {
		t.Fatal("replaced subscriber channel should be closed")
	}

	h.unsubscribe("alice", "tab-1", old)
	if h.Subscribers("alice") != 1 {
		t.Fatal("stale unsubscribe removed the current subscriber")
	}

	h.unsubscribe("alice", "tab-1", current)
	if h.Subscribers("alice") != 0 {
		t.Fatal("expected no subscribers")
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	sub := h.subscribe("alice", "tab-1")
	for i := 0; i < sendBuffer+5; i++ {
		h.Publish("alice", Event{Type: EventProgress, Message: strconv.Itoa(i)})
	}
	if len(sub.send) != sendBuffer {
		t.Fatalf("buffered = %d, want %d", len(sub.send), sendBuffer)
	}
}

func TestHandlerStreamsEvents(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub, "", true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := identity.WithLearner(r.Context(), "alice", "tab-1")
		handler.ServeHTTP(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("alice") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish("alice", Event{Type: EventLevelUp, Message: "Apprentice"})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != EventLevelUp || ev.Message != "Apprentice" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestHandlerRejectsForeignOrigin(t *testing.T) {
	handler := NewHandler(NewHub(), "https://app.example.com", false)
	req := httptest.NewRequest(http.MethodGet, "/ws/events", nil)
	req = req.WithContext(identity.WithLearner(req.Context(), "alice", "tab-1"))
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHubHoldsEventsForOfflineUser(t *testing.T) {
	h := NewHub()
	h.Publish("alice", Event{Type: EventProgress})
	for i := 0; i < backlogSize+2; i++ {
		h.Publish("alice", Event{Type: EventToast, Message: strconv.Itoa(i)})
	}

	sub := h.subscribe("alice", "tab-1")
	if len(sub.send) != backlogSize {
		t.Fatalf("delivered = %d, want %d", len(sub.send), backlogSize)
	}
	var first Event
	if err := json.Unmarshal(<-sub.send, &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.Type != EventToast || first.Message != "2" {
		t.Errorf("first held event = %+v, want toast 2", first)
	}

	other := h.subscribe("alice", "tab-2")
	if len(other.send) != 0 {
		t.Error("held events delivered twice")
	}
}

func TestHubPrune(t *testing.T) {
	h := NewHub()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	h.Publish("alice", Event{Type: EventLevelUp})
	now = now.Add(30 * time.Minute)
	h.Publish("bob", Event{Type: EventToast})
	now = now.Add(40 * time.Minute)

	if n := h.Prune(time.Hour); n != 1 {
		t.Fatalf("pruned = %d, want 1", n)
	}
	if _, ok := h.pending["alice"]; ok {
		t.Error("alice's stale events were kept")
	}
	if _, ok := h.pending["bob"]; !ok {
		t.Error("bob's recent events were pruned")
	}
}

func TestEventRingWraps(t *testing.T) {
	r := newEventRing(3)
	now := time.Now()
	for _, s := range []string{"a", "b", "c", "d"} {
		r.write([]byte(s), now)
	}
	got := r.drain()
	if len(got) != 3 || string(got[0]) != "b" || string(got[2]) != "d" {
		t.Fatalf("drain = %q", got)
	}
	if r.len() != 0 {
		t.Errorf("len after drain = %d", r.len())
	}
}
