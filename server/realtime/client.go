package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/averill/parlor/server/auth"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Outbound frame buffer per session.
	sendBufferSize = 64

	// Inbound support events per second per session, with burst.
	inboundRate  = 5
	inboundBurst = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Session tokens, not origins, gate access.
		return true
	},
}

// InboundEvent is a support-relay event sent by a connected client. The
// sender is always taken from the authenticated session, never from the
// payload.
type InboundEvent struct {
	Event   string `json:"event"`
	UserID  int32  `json:"userId,omitempty"`
	AgentID int32  `json:"agentId,omitempty"`
	Text    string `json:"text,omitempty"`
}

// InboundHandler dispatches inbound support events.
type InboundHandler func(ctx context.Context, sender auth.Identity, event InboundEvent)

// ServeWS upgrades the request to a websocket session, joins the hub, and
// runs the read/write pumps until disconnect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity auth.Identity, handle InboundHandler) error {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	s := &Session{
		hub:      h,
		conn:     wsConn,
		send:     make(chan []byte, sendBufferSize),
		identity: identity,
	}
	h.Join(s)

	go s.writePump()
	go s.readPump(handle)
	return nil
}

func (s *Session) readPump(handle InboundHandler) {
	defer func() {
		s.hub.Leave(s)
		close(s.send)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(inboundRate, inboundBurst)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("session read failed", "user_id", s.identity.UserID, "error", err)
			}
			return
		}

		if !limiter.Allow() {
			slog.Warn("session flooding, dropping event", "user_id", s.identity.UserID)
			continue
		}

		var event InboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Warn("malformed inbound event", "user_id", s.identity.UserID, "error", err)
			continue
		}
		if handle != nil {
			handle(context.Background(), s.identity, event)
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

			// Flush queued frames in the same wakeup.
			for range len(s.send) {
				if err := s.conn.WriteMessage(websocket.TextMessage, <-s.send); err != nil {
					return
				}
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
