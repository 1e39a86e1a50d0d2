// Package notify pushes progress and toast events to connected browser tabs.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event types.
const (
	EventProgress = "progress"
	EventToast    = "toast"
	EventLevelUp  = "level_up"
)

// Toast tones.
const (
	ToneSuccess = "success"
	ToneInfo    = "info"
)

// Event is one message pushed to a user's tabs.
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	Tone      string    `json:"tone,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events to a user.
type Publisher interface {
	Publish(userID string, ev Event)
}

const (
	sendBuffer = 16

	// backlogSize bounds the events held for a user with no open tab.
	backlogSize = 8
)

type subscriber struct {
	send chan []byte
}

// Hub tracks one subscriber per user and tab session. Toasts and level-ups
// published while a user has no open tab are held and delivered to the
// next tab that connects.
type Hub struct {
	mu      sync.RWMutex
	active  map[string]map[string]*subscriber
	pending map[string]*eventRing
	now     func() time.Time
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active:  make(map[string]map[string]*subscriber),
		pending: make(map[string]*eventRing),
		now:     time.Now,
	}
}

// subscribe registers a tab. An existing subscriber for the same tab is
// replaced and its channel closed.
func (h *Hub) subscribe(userID, tabID string) *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[userID]; !exists {
		h.active[userID] = make(map[string]*subscriber)
	}
	if existing, exists := h.active[userID][tabID]; exists {
		close(existing.send)
	}

	sub := &subscriber{send: make(chan []byte, sendBuffer)}
	h.active[userID][tabID] = sub
	if ring, ok := h.pending[userID]; ok {
		for _, data := range ring.drain() {
			sub.send <- data
		}
		delete(h.pending, userID)
	}
	slog.Info("event stream registered", "user_id", userID, "tab_id", tabID)
	return sub
}

// unsubscribe removes sub if it is still the tab's current subscriber.
func (h *Hub) unsubscribe(userID, tabID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.active[userID]
	if !ok {
		return
	}
	if current, exists := sessions[tabID]; exists && current == sub {
		close(sub.send)
		delete(sessions, tabID)
		if len(sessions) == 0 {
			delete(h.active, userID)
		}
		slog.Info("event stream unregistered", "user_id", userID, "tab_id", tabID)
	}
}

// Publish fans ev out to every tab of userID. Slow tabs drop events.
// Progress snapshots are not held for offline users.
func (h *Hub) Publish(userID string, ev Event) {
	now := h.now()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now.UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("failed to marshal event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	tabs := h.active[userID]
	if len(tabs) == 0 {
		if ev.Type == EventProgress {
			return
		}
		ring, ok := h.pending[userID]
		if !ok {
			ring = newEventRing(backlogSize)
			h.pending[userID] = ring
		}
		ring.write(data, now)
		return
	}
	for sid, sub := range tabs {
		select {
		case sub.send <- data:
		default:
			slog.Warn("event dropped for slow subscriber", "user_id", userID, "tab_id", sid, "type", ev.Type)
		}
	}
}

// Subscribers returns the number of open tabs for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID])
}

// Prune drops held events of users who have not connected for maxAge and
// returns how many users were dropped.
func (h *Hub) Prune(maxAge time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	removed := 0
	for userID, ring := range h.pending {
		if now.Sub(ring.updated) > maxAge {
			delete(h.pending, userID)
			removed++
		}
	}
	return removed
}

// StartPruner runs Prune every interval until ctx is done.
func (h *Hub) StartPruner(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := h.Prune(maxAge); n > 0 {
					slog.Debug("pruned held events", "users", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(string, Event) {}
