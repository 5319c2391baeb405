package server

import "github.com/rs/zerolog/log"

// authorizeHost proves the requester currently represents the host. The
// resolution order runs from the strongest signal to the weakest; an
// unidentified requester never defaults to host.
func (s *Server) authorizeHost(cs *ConnectionSession, game *Game, sessionToken string) (*Player, error) {
	if game == nil {
		return nil, notFoundf("game")
	}
	// 1. The requester's own bound player carries the host flag.
	if cs != nil {
		if bound := s.registry.Binding(cs); bound.GameID == game.ID && bound.PlayerID != 0 {
			if player := findPlayer(game, bound.PlayerID); player != nil && player.IsHost {
				return player, nil
			}
		}
	}
	// 2. The supplied session token maps to a host-flagged player.
	if playerID, ok := s.registry.PlayerForToken(game.ID, sessionToken); ok {
		if player := findPlayer(game, playerID); player != nil && player.IsHost {
			log.Debug().Str("game_id", game.ID).Int("player_id", playerID).
				Msg("host resolved via session token")
			return player, nil
		}
	}
	// 3. Fallback scan: any live connection whose user identity is the
	// game's recorded host identity.
	for _, bound := range s.registry.BindingsForGame(game.ID) {
		if bound.PlayerID == 0 || bound.UserID != game.HostUserID {
			continue
		}
		if player := findPlayer(game, bound.PlayerID); player != nil {
			log.Debug().Str("game_id", game.ID).Int("player_id", player.ID).
				Msg("host resolved via connection scan")
			return player, nil
		}
	}
	return nil, ErrUnauthorized
}

// honorHostClaim decides whether a reconnecting client's wasHost claim may
// restore the flag. A stale replayed claim fails both checks: some other
// active player already holds the flag, or the claimant is not the game's
// original host identity.
func honorHostClaim(game *Game, claimant *Player) bool {
	if claimant == nil || claimant.UserID != game.HostUserID {
		return false
	}
	for i := range game.Players {
		player := &game.Players[i]
		if player.ID != claimant.ID && player.IsHost && player.IsActive {
			return false
		}
	}
	return true
}
