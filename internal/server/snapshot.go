package server

// gameStatePayload is the full GAME_STATE snapshot: game, players, presence,
// and once playing, the current round with its guesses and results.
func (s *Server) gameStatePayload(game *Game) map[string]any {
	payload := map[string]any{
		"game":            gamePayload(game),
		"players":         playersPayload(game),
		"onlinePlayerIds": s.onlinePlayerIDs(game.ID),
	}
	if round := currentRound(game); round != nil {
		payload["currentRound"] = roundPayload(round)
	}
	return payload
}

func gamePayload(game *Game) map[string]any {
	return map[string]any{
		"id":            game.ID,
		"joinCode":      game.JoinCode,
		"roomName":      game.RoomName,
		"status":        game.Status,
		"currentRound":  game.CurrentRound,
		"totalRounds":   game.TotalRounds,
		"timerSeconds":  game.TimerSeconds,
		"timeRemaining": game.TimeRemaining,
	}
}

func playersPayload(game *Game) []map[string]any {
	players := make([]map[string]any, 0, len(game.Players))
	for _, player := range game.Players {
		players = append(players, map[string]any{
			"id":       player.ID,
			"username": player.Username,
			"score":    player.Score,
			"isHost":   player.IsHost,
			"isActive": player.IsActive,
		})
	}
	return players
}

func roundPayload(round *Round) map[string]any {
	payload := map[string]any{
		"number":   round.Number,
		"prompt":   round.Prompt,
		"imageUrl": round.ImageURL,
		"status":   round.Status,
		"guesses":  guessesPayload(round.Guesses),
	}
	if round.Result != nil {
		payload["results"] = resultPayload(round.Result)
	}
	return payload
}

func guessesPayload(guesses []Guess) []map[string]any {
	list := make([]map[string]any, 0, len(guesses))
	for _, guess := range guesses {
		list = append(list, guessPayload(guess))
	}
	return list
}

func guessPayload(guess Guess) map[string]any {
	return map[string]any{
		"id":           guess.ID,
		"playerId":     guess.PlayerID,
		"username":     guess.Username,
		"guessText":    guess.Text,
		"matchedWords": guess.MatchedWords,
		"matchCount":   guess.MatchCount,
		"timestamp":    guess.SubmittedAt,
	}
}

func resultPayload(result *RoundResult) map[string]any {
	placement := func(playerID int) any {
		if playerID == 0 {
			return nil
		}
		return playerID
	}
	return map[string]any{
		"firstPlace":  placement(result.FirstPlaceID),
		"secondPlace": placement(result.SecondPlaceID),
		"thirdPlace":  placement(result.ThirdPlaceID),
	}
}
