package server

import (
	"testing"
	"time"

	"prompt-rush/internal/config"
)

func TestMatchPromptWordsOrderIndependent(t *testing.T) {
	matched := matchPromptWords("a red fox", "red FOX jumps")
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %v", matched)
	}
	want := map[string]bool{"red": true, "fox": true}
	for _, word := range matched {
		if !want[word] {
			t.Fatalf("unexpected matched word %q", word)
		}
	}
}

func TestMatchPromptWordsRepeatedPromptWordCountsOnce(t *testing.T) {
	matched := matchPromptWords("fox fox fox den", "a fox")
	if len(matched) != 1 || matched[0] != "fox" {
		t.Fatalf("expected single fox match, got %v", matched)
	}
}

func TestMatchPromptWordsIgnoresPunctuationAndCase(t *testing.T) {
	matched := matchPromptWords("The quick, brown fox!", "BROWN. quick?")
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %v", matched)
	}
}

func TestMatchPromptWordsNoMatches(t *testing.T) {
	if matched := matchPromptWords("a red fox", "blue whale"); len(matched) != 0 {
		t.Fatalf("expected no matches, got %v", matched)
	}
}

func TestRankGuessesAccuracyThenSpeed(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	guesses := []Guess{
		{PlayerID: 1, MatchCount: 3, SubmittedAt: base.Add(10 * time.Second)},
		{PlayerID: 2, MatchCount: 3, SubmittedAt: base.Add(5 * time.Second)},
		{PlayerID: 3, MatchCount: 1, SubmittedAt: base.Add(1 * time.Second)},
	}
	ranked := rankGuesses(guesses, config.TieBreakFastest)
	order := []int{ranked[0].PlayerID, ranked[1].PlayerID, ranked[2].PlayerID}
	if order[0] != 2 || order[1] != 1 || order[2] != 3 {
		t.Fatalf("expected order [2 1 3], got %v", order)
	}
}

func TestRankGuessesStableTieBreakKeepsArrivalOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	guesses := []Guess{
		{PlayerID: 1, MatchCount: 2, SubmittedAt: base.Add(10 * time.Second)},
		{PlayerID: 2, MatchCount: 2, SubmittedAt: base.Add(5 * time.Second)},
	}
	ranked := rankGuesses(guesses, config.TieBreakStable)
	if ranked[0].PlayerID != 1 || ranked[1].PlayerID != 2 {
		t.Fatalf("expected arrival order preserved, got %v then %v", ranked[0].PlayerID, ranked[1].PlayerID)
	}
}

func TestComputeRoundResultPartialPlacements(t *testing.T) {
	round := &Round{
		Guesses: []Guess{
			{PlayerID: 7, MatchCount: 2, SubmittedAt: time.Unix(100, 0)},
			{PlayerID: 9, MatchCount: 1, SubmittedAt: time.Unix(101, 0)},
		},
	}
	result := computeRoundResult(round, config.TieBreakFastest)
	if result.FirstPlaceID != 7 || result.SecondPlaceID != 9 || result.ThirdPlaceID != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestComputeRoundResultOneGuessPerPlayerPlaces(t *testing.T) {
	round := &Round{
		Guesses: []Guess{
			{PlayerID: 7, MatchCount: 3, SubmittedAt: time.Unix(100, 0)},
			{PlayerID: 7, MatchCount: 2, SubmittedAt: time.Unix(101, 0)},
			{PlayerID: 9, MatchCount: 1, SubmittedAt: time.Unix(102, 0)},
		},
	}
	result := computeRoundResult(round, config.TieBreakFastest)
	if result.FirstPlaceID != 7 || result.SecondPlaceID != 9 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ThirdPlaceID != 0 {
		t.Fatalf("expected third place empty, got %d", result.ThirdPlaceID)
	}
}

func TestComputeRoundResultNoGuesses(t *testing.T) {
	result := computeRoundResult(&Round{}, config.TieBreakFastest)
	if result.FirstPlaceID != 0 || result.SecondPlaceID != 0 || result.ThirdPlaceID != 0 {
		t.Fatalf("expected empty placements, got %+v", result)
	}
}

func TestApplyPlacementsPoints(t *testing.T) {
	game := &Game{
		Players: []Player{
			{ID: 1, Score: 5},
			{ID: 2},
			{ID: 3},
			{ID: 4},
		},
	}
	applyPlacements(game, RoundResult{FirstPlaceID: 2, SecondPlaceID: 1, ThirdPlaceID: 4})
	if game.Players[1].Score != 3 {
		t.Fatalf("first place expected 3 points, got %d", game.Players[1].Score)
	}
	if game.Players[0].Score != 7 {
		t.Fatalf("second place expected 5+2 points, got %d", game.Players[0].Score)
	}
	if game.Players[3].Score != 1 {
		t.Fatalf("third place expected 1 point, got %d", game.Players[3].Score)
	}
	if game.Players[2].Score != 0 {
		t.Fatalf("non-placer expected no points, got %d", game.Players[2].Score)
	}
}

func TestStandingsSortedByScore(t *testing.T) {
	game := &Game{
		Players: []Player{
			{ID: 1, Username: "ada", Score: 2},
			{ID: 2, Username: "bob", Score: 6},
			{ID: 3, Username: "cam", Score: 2},
		},
	}
	list := standings(game)
	if list[0].PlayerID != 2 {
		t.Fatalf("expected bob first, got %+v", list[0])
	}
	if list[1].PlayerID != 1 || list[2].PlayerID != 3 {
		t.Fatalf("expected stable order for ties, got %+v", list)
	}
}
