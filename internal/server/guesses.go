package server

import "github.com/rs/zerolog/log"

func (s *Server) handleSubmitGuess(cs *ConnectionSession, p submitGuessPayload) error {
	text, err := validateGuessText(p.GuessText)
	if err != nil {
		return err
	}
	game, ok := s.resolveGame(cs, p.GameID)
	if !ok {
		return notFoundf("game %s", p.GameID)
	}

	var stored Guess
	game, err = s.store.UpdateGame(game.ID, func(game *Game) error {
		round := activeRound(game)
		if round == nil {
			return invalidStatef("no active round")
		}
		if p.RoundID != 0 && p.RoundID != round.Number {
			return invalidStatef("round %d is not the active round", p.RoundID)
		}
		player, err := s.resolveSubmitter(cs, game, p)
		if err != nil {
			return err
		}
		for _, guess := range round.Guesses {
			if guess.PlayerID == player.ID {
				return ErrDuplicateSubmission
			}
		}
		matched := matchPromptWords(round.Prompt, text)
		stored = Guess{
			ID:           s.store.AllocGuessID(),
			PlayerID:     player.ID,
			Username:     player.Username,
			Text:         text,
			MatchedWords: matched,
			MatchCount:   len(matched),
			SubmittedAt:  s.clock.Now().UTC(),
		}
		round.Guesses = append(round.Guesses, stored)
		return nil
	})
	if err != nil {
		return err
	}

	round := currentRound(game)
	if err := s.persistGuess(game, round, &stored); err != nil {
		log.Warn().Str("game_id", game.ID).Err(err).Msg("persist guess failed")
	}
	log.Info().Str("game_id", game.ID).Int("player_id", stored.PlayerID).
		Int("match_count", stored.MatchCount).Msg("guess accepted")
	s.broadcastToGame(game.ID, msgPlayerGuess, map[string]any{
		"guess":     guessPayload(stored),
		"username":  stored.Username,
		"timestamp": stored.SubmittedAt,
	})
	return nil
}

// resolveSubmitter establishes the true identity behind a guess. The chain
// runs strongest signal first; the payload player id is the least trusted,
// so a stale or tampered client cannot misattribute a guess.
func (s *Server) resolveSubmitter(cs *ConnectionSession, game *Game, p submitGuessPayload) (*Player, error) {
	if cs != nil {
		if bound := s.registry.Binding(cs); bound.GameID == game.ID && bound.PlayerID != 0 {
			if player := findPlayer(game, bound.PlayerID); player != nil {
				return player, nil
			}
		}
	}
	if playerID, ok := s.registry.PlayerForToken(game.ID, p.SessionID); ok {
		if player := findPlayer(game, playerID); player != nil {
			log.Debug().Str("game_id", game.ID).Int("player_id", playerID).
				Msg("submitter resolved via session token")
			return player, nil
		}
	}
	if p.PlayerID != 0 {
		if player := findPlayer(game, p.PlayerID); player != nil {
			log.Debug().Str("game_id", game.ID).Int("player_id", p.PlayerID).
				Msg("submitter resolved via payload id")
			return player, nil
		}
	}
	return nil, ErrIdentityAmbiguous
}
