package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// handleWebSocket answers one prediction per text frame. Invalid frames get
// an error frame and the connection stays open.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	// Server-wide deadlines do not apply to a long-lived stream.
	conn.UnderlyingConn().SetDeadline(time.Time{})
	conn.SetReadLimit(maxBodyBytes)

	s.track(conn)
	defer s.untrack(conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		var reply any
		if msgType != websocket.TextMessage {
			reply = ErrorResponse{Error: "expected a text frame"}
		} else if resp, err := s.predict(data, SourceWebSocket); err != nil {
			reply = ErrorResponse{Error: err.Error()}
		} else {
			reply = resp
		}

		conn.SetWriteDeadline(time.Now().Add(s.timeout))
		if err := conn.WriteJSON(reply); err != nil {
			log.Warn().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

func (s *Server) track(conn *websocket.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
	if s.metrics != nil {
		s.metrics.WSConnections().Add(1)
	}
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
	if s.metrics != nil {
		s.metrics.WSConnections().Add(-1)
	}
}
