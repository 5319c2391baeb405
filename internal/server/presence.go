package server

import (
	"time"

	"github.com/rs/zerolog/log"
)

func (s *Server) gracePeriod() time.Duration {
	return time.Duration(s.cfg.GracePeriodSeconds) * time.Second
}

func (s *Server) heartbeatTimeout() time.Duration {
	return time.Duration(s.cfg.HeartbeatTimeoutSeconds) * time.Second
}

// onlinePlayerIDs derives presence for a game from live, recently
// heartbeating bound connections.
func (s *Server) onlinePlayerIDs(gameID string) []int {
	cutoff := s.clock.Now().Add(-s.heartbeatTimeout())
	return s.registry.OnlinePlayers(gameID, cutoff)
}

func (s *Server) broadcastPresence(gameID string) {
	s.broadcastToGame(gameID, msgPlayersOnlineUpdate, map[string]any{
		"onlinePlayers": s.onlinePlayerIDs(gameID),
	})
}

func (s *Server) handleHeartbeat(cs *ConnectionSession, p heartbeatPayload) error {
	s.registry.Heartbeat(cs)
	return nil
}

// expireGrace fires when the grace period lapses with no matching
// re-registration: the player is gone, not refreshing.
func (s *Server) expireGrace(gameID string, playerID int) {
	if s.registry.HasConnectionForPlayer(gameID, playerID, "") {
		return
	}
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		player := findPlayer(game, playerID)
		if player == nil {
			return notFoundf("player %d", playerID)
		}
		player.IsActive = false
		return nil
	})
	if err != nil {
		return
	}
	log.Info().Str("game_id", gameID).Int("player_id", playerID).Msg("grace period expired, player inactive")
	if err := s.persistPlayerActive(game, playerID, false); err != nil {
		log.Warn().Str("game_id", gameID).Err(err).Msg("persist player inactive failed")
	}
	s.broadcastToGame(gameID, msgPlayerUpdate, map[string]any{
		"players": playersPayload(game),
	})
	s.broadcastPresence(gameID)
	// An empty room keeps no countdown running.
	if len(s.registry.ConnectionsForGame(gameID)) == 0 {
		s.stopRoundTimer(gameID)
	}
}
