package server

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	errCannotDetermineGame = errors.New("cannot determine game")
	errGameAlreadyEnded    = errors.New("game already ended")
)

func (s *Server) handleReconnect(cs *ConnectionSession, p reconnectPayload) error {
	game, err := s.reconnectTarget(p)
	if err != nil {
		s.send(cs, msgReconnectFailure, map[string]any{"message": err.Error()})
		return nil
	}

	var resolvedID int
	var wasCreated bool
	game, err = s.store.UpdateGame(game.ID, func(game *Game) error {
		if game.Status == statusFinished {
			return errGameAlreadyEnded
		}
		player, created, resolveErr := s.resolveReconnect(game, p)
		if resolveErr != nil {
			return resolveErr
		}
		player.IsActive = true
		if p.WasHost && !player.IsHost && honorHostClaim(game, player) {
			log.Info().Str("game_id", game.ID).Int("player_id", player.ID).
				Msg("host authority restored on reconnect")
			player.IsHost = true
		}
		resolvedID = player.ID
		wasCreated = created
		return nil
	})
	if err != nil {
		log.Info().Str("conn_id", cs.ID).Err(err).Msg("reconnect rejected")
		s.send(cs, msgReconnectFailure, map[string]any{"message": err.Error()})
		return nil
	}
	resolved := findPlayer(game, resolvedID)
	if resolved == nil {
		return notFoundf("player %d", resolvedID)
	}

	s.registry.Bind(cs, game.ID, resolved.ID, resolved.UserID, p.SessionID)
	if wasCreated {
		if err := s.persistPlayer(game, resolved); err != nil {
			log.Warn().Str("game_id", game.ID).Err(err).Msg("persist player failed")
		}
	} else if err := s.persistPlayerActive(game, resolved.ID, true); err != nil {
		log.Warn().Str("game_id", game.ID).Err(err).Msg("persist player active failed")
	}
	log.Info().Str("game_id", game.ID).Int("player_id", resolved.ID).
		Bool("created", wasCreated).Msg("reconnect resolved")

	s.send(cs, msgReconnectSuccess, map[string]any{
		"playerId": resolved.ID,
		"gameId":   game.ID,
		"gameCode": game.JoinCode,
	})
	s.send(cs, msgGameState, s.gameStatePayload(game))
	s.broadcastToGame(game.ID, msgPlayerUpdate, map[string]any{
		"players": playersPayload(game),
	})
	s.broadcastPresence(game.ID)
	return nil
}

func (s *Server) reconnectTarget(p reconnectPayload) (*Game, error) {
	if code := strings.TrimSpace(p.GameCode); code != "" {
		if game, ok := s.store.FindGameByJoinCode(code); ok {
			return game, nil
		}
		return nil, errCannotDetermineGame
	}
	if p.PlayerID != 0 {
		if game, ok := s.store.FindGameByPlayerID(p.PlayerID); ok {
			return game, nil
		}
	}
	return nil, errCannotDetermineGame
}

// resolveReconnect matches a reconnecting client to a player using the
// ordered preference chain. Each step is logged so a surprising match can be
// traced afterwards.
func (s *Server) resolveReconnect(game *Game, p reconnectPayload) (player *Player, created bool, err error) {
	// 1. Exact session token match: distinct tabs on one device carry
	// distinct tokens and resolve to distinct players.
	if playerID, ok := s.registry.PlayerForToken(game.ID, p.SessionID); ok {
		if match := findPlayer(game, playerID); match != nil {
			log.Debug().Str("game_id", game.ID).Int("player_id", playerID).
				Msg("reconnect resolved via session token")
			return match, false, nil
		}
	}
	// 2. A host claim backed by the host's prior session token. The token
	// proves the seat even when the new tab carries a fresh session id and
	// no username.
	if p.WasHost && p.HostSessionID != "" && p.HostSessionID != p.SessionID {
		if playerID, ok := s.registry.PlayerForToken(game.ID, p.HostSessionID); ok {
			if match := findPlayer(game, playerID); match != nil {
				log.Debug().Str("game_id", game.ID).Int("player_id", playerID).
					Msg("reconnect resolved via host session token")
				return match, false, nil
			}
		}
	}
	// 3. Supplied player id, only if it belongs to this game. A cross-game
	// id is rejected here rather than reused.
	if p.PlayerID != 0 {
		if match := findPlayer(game, p.PlayerID); match != nil {
			log.Debug().Str("game_id", game.ID).Int("player_id", p.PlayerID).
				Msg("reconnect resolved via player id")
			return match, false, nil
		}
	}
	// 4. Case-insensitive username match within the game.
	username := normalizeText(p.Username)
	if username != "" {
		for i := range game.Players {
			if strings.EqualFold(game.Players[i].Username, username) {
				log.Debug().Str("game_id", game.ID).Int("player_id", game.Players[i].ID).
					Msg("reconnect resolved via username")
				return &game.Players[i], false, nil
			}
		}
	}
	// 5. Last resort: a brand-new player under the supplied username.
	if username == "" {
		return nil, false, ErrIdentityAmbiguous
	}
	user := s.store.EnsureUser(username)
	game.Players = append(game.Players, Player{
		ID:       s.store.AllocPlayerID(),
		UserID:   user.ID,
		Username: user.Username,
		IsActive: true,
		JoinedAt: timeNowUTC(),
	})
	return &game.Players[len(game.Players)-1], true, nil
}
