package server

import (
	"testing"
	"time"
)

func TestCloseInterruptedRoundScoresStoredGuesses(t *testing.T) {
	s, _ := newGameServer(t)
	game := &Game{
		ID:     "game-1",
		Status: statusPlaying,
		Players: []Player{
			{ID: 1, Username: "ada", IsHost: true, IsActive: true},
			{ID: 2, Username: "bob", IsActive: true},
		},
		CurrentRound: 1,
		TotalRounds:  3,
		Rounds: []Round{{
			Number: 1,
			Prompt: "red fox",
			Status: roundActive,
			Guesses: []Guess{
				{ID: 1, PlayerID: 2, Text: "a red fox", MatchCount: 2, SubmittedAt: time.Now()},
			},
		}},
	}

	s.closeInterruptedRound(game)

	if game.Status != statusRoundEnd {
		t.Fatalf("expected round_end, got %s", game.Status)
	}
	round := currentRound(game)
	if round.Status != roundCompleted || round.Result == nil {
		t.Fatalf("interrupted round not settled: %+v", round)
	}
	if round.Result.FirstPlaceID != 2 {
		t.Fatalf("expected player 2 in first place, got %+v", round.Result)
	}
	if game.Players[1].Score != firstPlacePoints {
		t.Fatalf("score %d, want %d", game.Players[1].Score, firstPlacePoints)
	}
}

func TestCloseInterruptedRoundWithoutActiveRound(t *testing.T) {
	s, _ := newGameServer(t)
	game := &Game{
		ID:           "game-1",
		Status:       statusPlaying,
		CurrentRound: 1,
		Rounds:       []Round{{Number: 1, Status: roundCompleted}},
	}

	s.closeInterruptedRound(game)

	if game.Status != statusRoundEnd {
		t.Fatalf("expected round_end, got %s", game.Status)
	}
}
