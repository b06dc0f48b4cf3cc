package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coderun-dev/fleet/internal/logger"
	"github.com/coderun-dev/fleet/internal/model"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHandler streams the Event Bus over a WebSocket connection, one
// subscription per connection. It mirrors the SSE handler's catch-up
// and heartbeat behavior.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithField("error", err.Error()).Error("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id, events, catchUp := s.bus.Subscribe()
	defer s.bus.Unsubscribe(id)

	go drainClientReads(conn)

	for _, evt := range catchUp {
		if err := writeWS(conn, evt); err != nil {
			return
		}
	}

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := writeWS(conn, evt); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeWS(conn *websocket.Conn, evt model.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// drainClientReads discards incoming client frames so control frames are
// processed and the socket does not pile up a backlog; it returns on the
// first read error. This endpoint is broadcast-only.
func drainClientReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
