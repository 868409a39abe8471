package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivoirehub/hubsync/internal/feed"
	"github.com/ivoirehub/hubsync/internal/notify"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Size of the per-connection delivery buffer.
	feedBufferSize = 256
)

// upgrader specifies parameters for upgrading an HTTP connection to a
// websocket. The gateway is a local daemon, so same-origin plus no-origin
// requests are accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// handleFeed serves GET /ws: a change-feed subscription for one user.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "err", err)
		return
	}

	ch := make(chan notify.Notification, feedBufferSize)
	unsub := s.registry.Subscribe(userID, ch)

	s.log.Info("Feed subscriber connected", "user_id", userID,
		"subscribers", s.registry.SubscriberCount(userID))

	go s.feedWritePump(conn, userID, ch, unsub)
	go s.feedReadPump(conn, userID)
}

// feedWritePump forwards registry deliveries to the peer and keeps the
// connection alive with pings.
func (s *Server) feedWritePump(conn *websocket.Conn, userID string,
	ch <-chan notify.Notification, unsub func()) {

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		unsub()
		conn.Close()
		s.log.Info("Feed subscriber disconnected", "user_id", userID)
	}()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteJSON(feed.Event{Type: feed.EventConnected})
	if err != nil {
		return
	}

	for {
		select {
		case n, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			err := conn.WriteJSON(feed.Event{
				Type:         feed.EventInsert,
				Notification: &n,
			})
			if err != nil {
				s.log.Warn("Feed write failed",
					"user_id", userID, "err", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}

// feedReadPump drains the connection so pong frames are processed and
// closes it when the peer goes away.
func (s *Server) feedReadPump(conn *websocket.Conn, userID string) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {

				s.log.Warn("Feed read failed", "user_id", userID,
					"err", err)
			}
			return
		}
	}
}
