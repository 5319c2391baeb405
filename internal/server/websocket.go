package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	cs := s.registry.Register(conn)
	log.Info().Str("conn_id", cs.ID).Str("remote", r.RemoteAddr).Msg("ws connected")
	s.startWriter(cs)
	s.send(cs, msgWelcome, map[string]any{"connectionId": cs.ID})
	go s.readLoop(cs)
}

func (s *Server) readLoop(cs *ConnectionSession) {
	defer s.handleDisconnect(cs)
	for {
		_, data, err := cs.conn.ReadMessage()
		if err != nil {
			log.Debug().Str("conn_id", cs.ID).Err(err).Msg("ws disconnected")
			return
		}
		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError(cs, fmt.Errorf("invalid message: %w", err))
			continue
		}
		s.dispatch(cs, env)
	}
}

// dispatch classifies one inbound envelope and hands it to the owning
// component. Each handler completes its read-validate-mutate-broadcast cycle
// under the game's lock before the next message for that game runs.
func (s *Server) dispatch(cs *ConnectionSession, env inboundEnvelope) {
	var err error
	switch env.Type {
	case msgCreateGame:
		err = decodeInto(env.Payload, func(p createGamePayload) error {
			return s.handleCreateGame(cs, p)
		})
	case msgJoinGame:
		err = decodeInto(env.Payload, func(p joinGamePayload) error {
			return s.handleJoinGame(cs, p)
		})
	case msgStartGame:
		err = decodeInto(env.Payload, func(p startGamePayload) error {
			return s.handleStartGame(cs, p)
		})
	case msgSubmitGuess:
		err = decodeInto(env.Payload, func(p submitGuessPayload) error {
			return s.handleSubmitGuess(cs, p)
		})
	case msgNextRound:
		err = decodeInto(env.Payload, func(p nextRoundPayload) error {
			return s.handleNextRound(cs, p)
		})
	case msgEndGame:
		err = decodeInto(env.Payload, func(p endGamePayload) error {
			return s.handleEndGame(cs, p)
		})
	case msgDeleteGame:
		err = decodeInto(env.Payload, func(p deleteGamePayload) error {
			return s.handleDeleteGame(cs, p)
		})
	case msgReconnectRequest:
		err = decodeInto(env.Payload, func(p reconnectPayload) error {
			return s.handleReconnect(cs, p)
		})
	case msgHeartbeat:
		err = decodeInto(env.Payload, func(p heartbeatPayload) error {
			return s.handleHeartbeat(cs, p)
		})
	default:
		err = fmt.Errorf("unknown message type %q", env.Type)
	}
	if err != nil {
		log.Info().Str("conn_id", cs.ID).Str("type", env.Type).Err(err).Msg("message rejected")
		s.sendError(cs, err)
	}
}

func decodeInto[T any](raw json.RawMessage, handle func(T) error) error {
	var payload T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
	}
	return handle(payload)
}

// handleDisconnect starts the grace period instead of marking the player
// inactive right away: a refresh and a departure look identical here.
func (s *Server) handleDisconnect(cs *ConnectionSession) {
	gameID, playerID := s.registry.Unregister(cs)
	if gameID == "" || playerID == 0 {
		return
	}
	log.Info().Str("conn_id", cs.ID).Str("game_id", gameID).Int("player_id", playerID).
		Msg("ws dropped, grace period started")
	s.registry.StartGrace(gameID, playerID, s.gracePeriod(), func() {
		s.expireGrace(gameID, playerID)
	})
	s.broadcastPresence(gameID)
}
