package server

import (
	"encoding/json"
	"fmt"
	"time"

	"prompt-rush/internal/db"

	"github.com/rs/zerolog/log"
)

// RestoreActiveGames reloads every unfinished game from the database into
// the in-memory store at startup, so join codes survive a restart. A round
// that was mid-countdown when the process died is closed out: its timer is
// gone, so it ends and its placements are computed from the stored guesses.
func (s *Server) RestoreActiveGames() error {
	if s.db == nil {
		return nil
	}
	records, err := db.UnfinishedGames(s.db)
	if err != nil {
		return err
	}
	restored := 0
	for i := range records {
		if err := s.restoreGame(&records[i]); err != nil {
			log.Warn().Uint("game_db_id", records[i].ID).Err(err).Msg("restore game failed")
			continue
		}
		restored++
	}
	if restored > 0 {
		log.Info().Int("games", restored).Msg("games restored from database")
	}
	return nil
}

func (s *Server) restoreGame(record *db.Game) error {
	game := &Game{
		ID:           fmt.Sprintf("game-%d", record.ID),
		DBID:         record.ID,
		JoinCode:     record.JoinCode,
		RoomName:     record.RoomName,
		RoomPassword: record.RoomPassword,
		Status:       record.Status,
		CurrentRound: record.CurrentRound,
		TotalRounds:  record.TotalRounds,
		TimerSeconds: record.TimerSeconds,
		CreatedAt:    record.CreatedAt,
	}

	players, err := db.PlayersByGame(s.db, record.ID)
	if err != nil {
		return err
	}
	userIDs := make(map[uint]int)
	playerIDs := make(map[uint]int)
	for _, row := range players {
		user := s.store.EnsureUser(row.Username)
		userIDs[row.UserID] = user.ID
		player := Player{
			ID:       int(row.ID),
			DBID:     row.ID,
			UserID:   user.ID,
			Username: row.Username,
			Score:    row.Score,
			IsHost:   row.IsHost,
			IsActive: row.IsActive,
			JoinedAt: row.JoinedAt,
		}
		playerIDs[row.ID] = player.ID
		game.Players = append(game.Players, player)
	}
	if hostID, ok := userIDs[record.HostUserID]; ok {
		game.HostUserID = hostID
	}

	rounds, err := db.RoundsByGame(s.db, record.ID)
	if err != nil {
		return err
	}
	for _, row := range rounds {
		round := Round{
			Number:   row.Number,
			DBID:     row.ID,
			Prompt:   row.Prompt,
			ImageURL: row.ImageURL,
			Status:   row.Status,
		}
		if row.StartedAt != nil {
			round.StartedAt = *row.StartedAt
		}
		if row.EndedAt != nil {
			round.EndedAt = *row.EndedAt
		}
		guesses, err := db.GuessesByRound(s.db, row.ID)
		if err != nil {
			return err
		}
		for _, guessRow := range guesses {
			var matched []string
			_ = json.Unmarshal(guessRow.MatchedWords, &matched)
			round.Guesses = append(round.Guesses, Guess{
				ID:           int(guessRow.ID),
				DBID:         guessRow.ID,
				PlayerID:     playerIDs[guessRow.PlayerID],
				Username:     restoredUsername(game, playerIDs[guessRow.PlayerID]),
				Text:         guessRow.Text,
				MatchedWords: matched,
				MatchCount:   guessRow.MatchCount,
				SubmittedAt:  guessRow.SubmittedAt,
			})
		}
		if result, err := db.ResultByRound(s.db, row.ID); err == nil {
			round.Result = &RoundResult{
				FirstPlaceID:  restoredPlacement(playerIDs, result.FirstPlaceID),
				SecondPlaceID: restoredPlacement(playerIDs, result.SecondPlaceID),
				ThirdPlaceID:  restoredPlacement(playerIDs, result.ThirdPlaceID),
			}
		}
		game.Rounds = append(game.Rounds, round)
	}

	if game.Status == statusPlaying {
		s.closeInterruptedRound(game)
	}
	return s.store.RestoreGame(game)
}

// closeInterruptedRound settles a round whose countdown died with the
// process: mark it completed, score what was guessed, move to round_end.
func (s *Server) closeInterruptedRound(game *Game) {
	round := activeRound(game)
	if round == nil {
		game.Status = statusRoundEnd
		return
	}
	round.Status = roundCompleted
	round.EndedAt = time.Now().UTC()
	result := computeRoundResult(round, s.cfg.TieBreak)
	round.Result = &result
	applyPlacements(game, result)
	game.Status = statusRoundEnd
	game.TimeRemaining = 0
	if err := s.persistRoundEnd(game, round); err != nil {
		log.Warn().Str("game_id", game.ID).Err(err).Msg("persist interrupted round failed")
	}
}

func restoredUsername(game *Game, playerID int) string {
	if player := findPlayer(game, playerID); player != nil {
		return player.Username
	}
	return ""
}

func restoredPlacement(playerIDs map[uint]int, dbID *uint) int {
	if dbID == nil {
		return 0
	}
	return playerIDs[*dbID]
}
