package server

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

func (s *Server) handleCreateGame(cs *ConnectionSession, p createGamePayload) error {
	username, err := validateUsername(p.Username)
	if err != nil {
		return err
	}
	timerSeconds, err := validateTimerSeconds(p.TimerSeconds, s.cfg.DefaultTimerSeconds)
	if err != nil {
		return err
	}
	totalRounds, err := validateTotalRounds(p.TotalRounds, s.cfg.DefaultTotalRounds)
	if err != nil {
		return err
	}
	roomName, err := validateRoomName(p.RoomName)
	if err != nil {
		return err
	}

	user := s.store.EnsureUser(username)
	game, host := s.store.CreateGame(user, timerSeconds, totalRounds, roomName, p.RoomPassword)
	// Persist first: the durable row may re-key the game ID, and bindings
	// and timers must use the final one.
	if err := s.persistGame(game); err != nil {
		log.Warn().Str("game_id", game.ID).Err(err).Msg("persist game failed")
	}
	s.registry.Bind(cs, game.ID, host.ID, user.ID, p.SessionID)
	log.Info().Str("game_id", game.ID).Str("join_code", game.JoinCode).
		Str("username", username).Msg("game created")

	s.send(cs, msgPlayerJoined, map[string]any{
		"success":  true,
		"playerId": host.ID,
		"gameId":   game.ID,
		"gameCode": game.JoinCode,
	})
	s.send(cs, msgGameState, s.gameStatePayload(game))
	s.broadcastPresence(game.ID)
	return nil
}

func (s *Server) handleJoinGame(cs *ConnectionSession, p joinGamePayload) error {
	username, err := validateUsername(p.Username)
	if err != nil {
		return err
	}
	target, ok := s.store.FindGameByJoinCode(strings.TrimSpace(p.GameCode))
	if !ok {
		return notFoundf("game with code %s", p.GameCode)
	}

	user := s.store.EnsureUser(username)
	var joinedID int
	game, err := s.store.UpdateGame(target.ID, func(game *Game) error {
		if game.Status == statusFinished {
			return invalidStatef("game already ended")
		}
		if game.RoomPassword != "" && game.RoomPassword != p.Password {
			return ErrUnauthorized
		}
		// A returning user claims their existing seat regardless of
		// lifecycle state; fresh joins are lobby-only.
		if existing := findPlayerByUser(game, user.ID); existing != nil {
			existing.IsActive = true
			joinedID = existing.ID
			return nil
		}
		if game.Status != statusLobby {
			return invalidStatef("game already started")
		}
		if s.cfg.MaxPlayersPerGame > 0 && len(game.Players) >= s.cfg.MaxPlayersPerGame {
			return invalidStatef("game is full")
		}
		joinedID = s.store.AllocPlayerID()
		game.Players = append(game.Players, Player{
			ID:       joinedID,
			UserID:   user.ID,
			Username: user.Username,
			IsActive: true,
			JoinedAt: timeNowUTC(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	joined := findPlayer(game, joinedID)
	if joined == nil {
		return notFoundf("player %d", joinedID)
	}

	s.registry.Bind(cs, game.ID, joined.ID, user.ID, p.SessionID)
	if err := s.persistPlayer(game, joined); err != nil {
		log.Warn().Str("game_id", game.ID).Err(err).Msg("persist player failed")
	}
	log.Info().Str("game_id", game.ID).Str("username", username).
		Int("player_id", joined.ID).Msg("player joined")

	s.send(cs, msgPlayerJoined, map[string]any{
		"success":  true,
		"playerId": joined.ID,
		"gameId":   game.ID,
		"gameCode": game.JoinCode,
	})
	s.broadcastToGame(game.ID, msgPlayerUpdate, map[string]any{
		"players": playersPayload(game),
	})
	s.broadcastToGame(game.ID, msgGameState, s.gameStatePayload(game))
	s.broadcastPresence(game.ID)
	return nil
}

func (s *Server) handleStartGame(cs *ConnectionSession, p startGamePayload) error {
	prompt, err := validatePrompt(p.Prompt)
	if err != nil {
		return err
	}
	game, ok := s.resolveGame(cs, p.GameID)
	if !ok {
		return notFoundf("game %s", p.GameID)
	}
	host, err := s.authorizeHost(cs, game, p.SessionID)
	if err != nil {
		return err
	}

	// The generator call can be slow; run it before taking the game lock
	// so heartbeats and presence keep flowing during generation.
	imageURL := strings.TrimSpace(p.ImageURL)
	if imageURL == "" {
		imageURL = s.generateImage(context.Background(), prompt)
	}

	game, err = s.store.UpdateGame(game.ID, func(game *Game) error {
		if game.Status != statusLobby {
			return invalidStatef("game already started")
		}
		s.beginRound(game, prompt, imageURL)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("game_id", game.ID).Int("host_id", host.ID).Msg("game started")
	s.afterRoundStart(game)
	return nil
}

func (s *Server) handleNextRound(cs *ConnectionSession, p nextRoundPayload) error {
	game, ok := s.resolveGame(cs, p.GameID)
	if !ok {
		return notFoundf("game %s", p.GameID)
	}
	if _, err := s.authorizeHost(cs, game, p.SessionID); err != nil {
		return err
	}
	if game.Status != statusRoundEnd {
		return invalidStatef("game is %s", game.Status)
	}

	// Out of rounds: the advance finishes the game instead.
	if game.CurrentRound >= game.TotalRounds {
		return s.finishGame(game.ID, "all rounds played")
	}

	prompt, err := validatePrompt(p.Prompt)
	if err != nil {
		return err
	}
	imageURL := s.generateImage(context.Background(), prompt)

	game, err = s.store.UpdateGame(game.ID, func(game *Game) error {
		if game.Status != statusRoundEnd {
			return invalidStatef("game is %s", game.Status)
		}
		if game.CurrentRound >= game.TotalRounds {
			return invalidStatef("no rounds remain")
		}
		s.beginRound(game, prompt, imageURL)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("game_id", game.ID).Int("round", game.CurrentRound).Msg("round advanced")
	s.afterRoundStart(game)
	return nil
}

// beginRound mutates the locked game into its next playing round.
func (s *Server) beginRound(game *Game, prompt, imageURL string) {
	game.Status = statusPlaying
	game.CurrentRound++
	game.TimeRemaining = game.TimerSeconds
	game.Rounds = append(game.Rounds, Round{
		Number:    game.CurrentRound,
		Prompt:    prompt,
		ImageURL:  imageURL,
		Status:    roundActive,
		StartedAt: s.clock.Now().UTC(),
	})
}

func (s *Server) afterRoundStart(game *Game) {
	round := currentRound(game)
	if err := s.persistRound(game, round); err != nil {
		log.Warn().Str("game_id", game.ID).Err(err).Msg("persist round failed")
	}
	s.broadcastToGame(game.ID, msgRoundStart, map[string]any{
		"round":         roundPayload(round),
		"timeRemaining": game.TimeRemaining,
	})
	s.broadcastToGame(game.ID, msgGameState, s.gameStatePayload(game))
	s.startRoundTimer(game.ID)
}

// finishRound ends the active round: mark it completed, compute placements,
// apply scores, and broadcast results. Triggered by the countdown hitting
// zero; the lock re-check makes a second trigger a no-op.
func (s *Server) finishRound(gameID string) {
	var result RoundResult
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		round := activeRound(game)
		if game.Status != statusPlaying || round == nil {
			return invalidStatef("no active round")
		}
		round.Status = roundCompleted
		round.EndedAt = s.clock.Now().UTC()
		result = computeRoundResult(round, s.cfg.TieBreak)
		round.Result = &result
		applyPlacements(game, result)
		game.Status = statusRoundEnd
		game.TimeRemaining = 0
		return nil
	})
	if err != nil {
		return
	}
	s.stopRoundTimer(gameID)
	round := currentRound(game)
	log.Info().Str("game_id", gameID).Int("round", round.Number).
		Int("guesses", len(round.Guesses)).Msg("round ended")
	if err := s.persistRoundEnd(game, round); err != nil {
		log.Warn().Str("game_id", gameID).Err(err).Msg("persist round end failed")
	}
	s.broadcastToGame(gameID, msgRoundEnd, map[string]any{
		"round":     roundPayload(round),
		"results":   resultPayload(&result),
		"standings": standings(game),
	})
	s.broadcastToGame(gameID, msgGameState, s.gameStatePayload(game))
}

func (s *Server) handleEndGame(cs *ConnectionSession, p endGamePayload) error {
	game, ok := s.resolveGame(cs, p.GameID)
	if !ok {
		return notFoundf("game %s", p.GameID)
	}
	if _, err := s.authorizeHost(cs, game, ""); err != nil {
		return err
	}
	return s.finishGame(game.ID, "ended by host")
}

func (s *Server) finishGame(gameID, reason string) error {
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status == statusFinished {
			return invalidStatef("game already ended")
		}
		if round := activeRound(game); round != nil {
			round.Status = roundCompleted
			round.EndedAt = s.clock.Now().UTC()
		}
		game.Status = statusFinished
		game.TimeRemaining = 0
		return nil
	})
	if err != nil {
		return err
	}
	s.stopRoundTimer(gameID)
	log.Info().Str("game_id", gameID).Str("reason", reason).Msg("game finished")
	if err := s.persistGameStatus(game, "game_finished", reason); err != nil {
		log.Warn().Str("game_id", gameID).Err(err).Msg("persist game status failed")
	}
	s.broadcastToGame(gameID, msgGameState, s.gameStatePayload(game))
	return nil
}

func (s *Server) handleDeleteGame(cs *ConnectionSession, p deleteGamePayload) error {
	game, ok := s.resolveGame(cs, p.GameID)
	if !ok {
		return notFoundf("game %s", p.GameID)
	}
	if _, err := s.authorizeHost(cs, game, p.SessionID); err != nil {
		return err
	}
	s.stopRoundTimer(game.ID)
	s.broadcastToGame(game.ID, msgGameReset, map[string]any{
		"message": "game was deleted by the host",
	})
	s.registry.DropGame(game.ID)
	s.store.RemoveGame(game.ID)
	if err := s.deleteGameRecords(game); err != nil {
		log.Warn().Str("game_id", game.ID).Err(err).Msg("delete game records failed")
	}
	log.Info().Str("game_id", game.ID).Msg("game deleted")
	return nil
}

// resolveGame finds a game by the payload reference, falling back to the
// connection's own binding.
func (s *Server) resolveGame(cs *ConnectionSession, gameID string) (*Game, bool) {
	if gameID != "" {
		if game, ok := s.store.GetGame(gameID); ok {
			return game, true
		}
		if game, ok := s.store.FindGameByJoinCode(gameID); ok {
			return game, true
		}
		return nil, false
	}
	if cs != nil {
		if bound := s.registry.Binding(cs); bound.GameID != "" {
			return s.store.GetGame(bound.GameID)
		}
	}
	return nil, false
}
