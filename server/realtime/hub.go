// Package realtime fans chat events out to connected sessions grouped into
// rooms. Delivery is best-effort: durable state lives in the store, so a
// dropped frame only delays a UI refresh.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/averill/parlor/internal/metrics"
	"github.com/averill/parlor/server/auth"
)

// Emitter is the fan-out dependency consumed by the chat and support
// services. It is injected through constructors, never looked up from
// ambient state.
type Emitter interface {
	Emit(room Room, event string, payload any)
}

// Frame is the wire envelope for outbound events.
type Frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Session is one connected live transport endpoint with a verified identity.
// Sessions are ephemeral: membership is rebuilt on every reconnect.
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity auth.Identity
}

// Identity returns the identity bound to this session at join time.
func (s *Session) Identity() auth.Identity {
	return s.identity
}

// Hub owns the room membership table. It is the one piece of shared,
// concurrently-mutated in-memory state in the server and must survive
// concurrent join/leave/emit without corruption.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[Room]map[*Session]struct{}
	members map[*Session][]Room
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		rooms:   make(map[Room]map[*Session]struct{}),
		members: make(map[*Session][]Room),
		metrics: m,
	}
}

// Join adds the session to its own inbox room, plus the matching role pool
// for staff identities. A session may belong to multiple rooms at once.
func (h *Hub) Join(s *Session) {
	rooms := []Room{UserInbox(s.identity.UserID)}
	switch s.identity.Role {
	case auth.RoleAdmin:
		rooms = append(rooms, AdminPool)
	case auth.RoleAgent:
		rooms = append(rooms, AgentPool)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, joined := h.members[s]; joined {
		return
	}
	h.members[s] = rooms
	for _, room := range rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*Session]struct{})
		}
		h.rooms[room][s] = struct{}{}
	}
	h.metrics.SessionConnected()

	slog.Debug("session joined",
		"user_id", s.identity.UserID,
		"role", string(s.identity.Role),
		"rooms", len(rooms),
	)
}

// Leave removes the session from every room it joined. Idempotent; called on
// disconnect.
func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, joined := h.members[s]
	if !joined {
		return
	}
	delete(h.members, s)
	for _, room := range rooms {
		if sessions, ok := h.rooms[room]; ok {
			delete(sessions, s)
			if len(sessions) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.metrics.SessionDisconnected()
}

// Emit delivers the event to every session currently in the room.
// Fire-and-forget: no acknowledgment, no retry; a session with a full send
// buffer skips the frame rather than blocking the caller.
func (h *Hub) Emit(room Room, event string, payload any) {
	data, err := json.Marshal(Frame{Event: event, Payload: payload})
	if err != nil {
		slog.Error("failed to marshal event frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[room] {
		select {
		case s.send <- data:
		default:
			slog.Warn("dropping frame for slow session",
				"event", event,
				"room", room.String(),
				"user_id", s.identity.UserID,
			)
		}
	}
}
