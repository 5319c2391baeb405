package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"prompt-rush/internal/db"

	"gorm.io/datatypes"
)

// The in-memory store is the live authority; these mirrors keep the durable
// records in step so a broadcastable write is always visible to subsequent
// reads. A nil s.db (tests, local play) makes every mirror a no-op.
//
// The mirrors receive detached game copies, so any database ID assigned
// during a write is recorded back into the live game under its lock.

func (s *Server) recordGameDBID(game *Game) {
	_, _ = s.store.UpdateGame(game.ID, func(live *Game) error {
		live.DBID = game.DBID
		return nil
	})
}

func (s *Server) recordPlayerDBID(gameID string, playerID int, dbID uint) {
	_, _ = s.store.UpdateGame(gameID, func(live *Game) error {
		if player := findPlayer(live, playerID); player != nil {
			player.DBID = dbID
		}
		return nil
	})
}

func (s *Server) recordRoundDBID(gameID string, number int, dbID uint) {
	_, _ = s.store.UpdateGame(gameID, func(live *Game) error {
		for i := range live.Rounds {
			if live.Rounds[i].Number == number {
				live.Rounds[i].DBID = dbID
				return nil
			}
		}
		return nil
	})
}

func (s *Server) persistGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	hostUser, err := db.EnsureUser(s.db, hostUsername(game))
	if err != nil {
		return err
	}
	record := db.Game{
		JoinCode:     game.JoinCode,
		Status:       game.Status,
		HostUserID:   hostUser.ID,
		CurrentRound: game.CurrentRound,
		TotalRounds:  game.TotalRounds,
		TimerSeconds: game.TimerSeconds,
		RoomName:     game.RoomName,
		RoomPassword: game.RoomPassword,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	game.DBID = record.ID
	s.store.UpdateGameID(game, fmt.Sprintf("game-%d", record.ID))
	s.recordGameDBID(game)
	for i := range game.Players {
		if err := s.persistPlayer(game, &game.Players[i]); err != nil {
			return err
		}
	}
	return s.persistEvent(game, "game_created", EventPayload{
		GameID:   game.ID,
		JoinCode: game.JoinCode,
	})
}

func hostUsername(game *Game) string {
	for _, player := range game.Players {
		if player.UserID == game.HostUserID {
			return player.Username
		}
	}
	if len(game.Players) > 0 {
		return game.Players[0].Username
	}
	return ""
}

func (s *Server) persistPlayer(game *Game, player *Player) error {
	if s.db == nil {
		return nil
	}
	if player.DBID != 0 {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	user, err := db.EnsureUser(s.db, player.Username)
	if err != nil {
		return err
	}
	record := db.Player{
		GameID:   game.DBID,
		UserID:   user.ID,
		Username: player.Username,
		Score:    player.Score,
		IsHost:   player.IsHost,
		IsActive: player.IsActive,
		JoinedAt: player.JoinedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	player.DBID = record.ID
	s.recordPlayerDBID(game.ID, player.ID, record.ID)
	return s.persistEvent(game, "player_joined", EventPayload{
		PlayerID:   player.ID,
		PlayerName: player.Username,
	})
}

func (s *Server) persistPlayerActive(game *Game, playerID int, active bool) error {
	if s.db == nil {
		return nil
	}
	player := findPlayer(game, playerID)
	if player == nil || player.DBID == 0 {
		return nil
	}
	return db.UpdatePlayerActive(s.db, player.DBID, active)
}

func (s *Server) persistRound(game *Game, round *Round) error {
	if s.db == nil || round == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if round.DBID == 0 {
		started := round.StartedAt
		record := db.Round{
			GameID:    game.DBID,
			Number:    round.Number,
			Prompt:    round.Prompt,
			ImageURL:  round.ImageURL,
			Status:    round.Status,
			StartedAt: &started,
		}
		if err := s.db.Create(&record).Error; err != nil {
			return err
		}
		round.DBID = record.ID
		s.recordRoundDBID(game.ID, round.Number, record.ID)
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).
		Updates(map[string]any{"status": game.Status, "current_round": game.CurrentRound}).Error; err != nil {
		return err
	}
	return s.persistEvent(game, "round_started", EventPayload{
		Round:  round.Number,
		Status: game.Status,
	})
}

func (s *Server) persistGuess(game *Game, round *Round, guess *Guess) error {
	if s.db == nil || round == nil || round.DBID == 0 {
		return nil
	}
	player := findPlayer(game, guess.PlayerID)
	if player == nil || player.DBID == 0 {
		return errors.New("player has no durable record")
	}
	matched, err := json.Marshal(guess.MatchedWords)
	if err != nil {
		return err
	}
	record := db.Guess{
		RoundID:      round.DBID,
		PlayerID:     player.DBID,
		Text:         guess.Text,
		MatchedWords: datatypes.JSON(matched),
		MatchCount:   guess.MatchCount,
		SubmittedAt:  guess.SubmittedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	guess.DBID = record.ID
	return nil
}

func (s *Server) persistRoundEnd(game *Game, round *Round) error {
	if s.db == nil || round == nil || round.DBID == 0 {
		return nil
	}
	ended := round.EndedAt
	if err := db.UpdateRoundStatus(s.db, round.DBID, round.Status, &ended); err != nil {
		return err
	}
	if round.Result != nil {
		record := db.RoundResult{
			RoundID:       round.DBID,
			FirstPlaceID:  s.playerDBID(game, round.Result.FirstPlaceID),
			SecondPlaceID: s.playerDBID(game, round.Result.SecondPlaceID),
			ThirdPlaceID:  s.playerDBID(game, round.Result.ThirdPlaceID),
		}
		if err := s.db.Create(&record).Error; err != nil {
			return err
		}
	}
	for _, player := range game.Players {
		if player.DBID == 0 {
			continue
		}
		if err := db.UpdatePlayerScore(s.db, player.DBID, player.Score); err != nil {
			return err
		}
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).
		Update("status", game.Status).Error; err != nil {
		return err
	}
	return s.persistEvent(game, "round_ended", EventPayload{
		Round:  round.Number,
		Status: game.Status,
	})
}

func (s *Server) playerDBID(game *Game, playerID int) *uint {
	if playerID == 0 {
		return nil
	}
	player := findPlayer(game, playerID)
	if player == nil || player.DBID == 0 {
		return nil
	}
	id := player.DBID
	return &id
}

func (s *Server) persistGameStatus(game *Game, eventType, reason string) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).
		Update("status", game.Status).Error; err != nil {
		return err
	}
	return s.persistEvent(game, eventType, EventPayload{
		Status: game.Status,
		Reason: reason,
	})
}

func (s *Server) deleteGameRecords(game *Game) error {
	if s.db == nil || game.DBID == 0 {
		return nil
	}
	return db.DeleteGame(s.db, game.DBID)
}

func (s *Server) persistEvent(game *Game, eventType string, payload EventPayload) error {
	if s.db == nil || game.DBID == 0 {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := db.Event{
		GameID:  game.DBID,
		Type:    eventType,
		Payload: datatypes.JSON(body),
	}
	return s.db.Create(&record).Error
}

func (s *Server) ensureGameDBID(game *Game) error {
	if s.db == nil || game.DBID != 0 {
		return nil
	}
	record, err := db.GameByJoinCode(s.db, game.JoinCode)
	if err != nil {
		return err
	}
	game.DBID = record.ID
	s.recordGameDBID(game)
	return nil
}
