package server

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Fan-out is fire-and-forget: every connection gets a buffered send channel
// drained by its own writer goroutine, so one slow or dead client never
// stalls the mutation path or the rest of the room.

func (s *Server) startWriter(cs *ConnectionSession) {
	go func() {
		for data := range cs.send {
			if err := cs.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Str("conn_id", cs.ID).Err(err).Msg("ws write failed")
				return
			}
		}
	}()
}

func (s *Server) send(cs *ConnectionSession, kind string, payload any) {
	data, err := json.Marshal(outboundEnvelope{Type: kind, Payload: payload})
	if err != nil {
		log.Error().Str("kind", kind).Err(err).Msg("marshal outbound message")
		return
	}
	s.enqueue(cs, data)
}

func (s *Server) enqueue(cs *ConnectionSession, data []byte) {
	defer func() {
		// Sending on the closed channel of a connection torn down
		// concurrently is expected during disconnect races.
		_ = recover()
	}()
	select {
	case cs.send <- data:
	default:
		log.Warn().Str("conn_id", cs.ID).Msg("send buffer full, dropping message")
	}
}

func (s *Server) broadcastToGame(gameID, kind string, payload any) {
	data, err := json.Marshal(outboundEnvelope{Type: kind, Payload: payload})
	if err != nil {
		log.Error().Str("kind", kind).Err(err).Msg("marshal broadcast message")
		return
	}
	for _, cs := range s.registry.ConnectionsForGame(gameID) {
		s.enqueue(cs, data)
	}
}

func (s *Server) sendError(cs *ConnectionSession, err error) {
	if err == nil {
		return
	}
	s.send(cs, msgGameError, map[string]any{"message": err.Error()})
}
