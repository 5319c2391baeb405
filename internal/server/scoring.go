package server

import (
	"sort"
	"strings"
	"unicode"

	"prompt-rush/internal/config"
)

const (
	firstPlacePoints  = 3
	secondPlacePoints = 2
	thirdPlacePoints  = 1
)

// tokenizeWords lower-cases text and splits it into word tokens.
func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// matchPromptWords returns the distinct prompt tokens that occur anywhere in
// the guess, in prompt order. Repeated prompt words count once.
func matchPromptWords(prompt, guess string) []string {
	guessTokens := make(map[string]struct{})
	for _, token := range tokenizeWords(guess) {
		guessTokens[token] = struct{}{}
	}
	seen := make(map[string]struct{})
	matched := make([]string, 0)
	for _, token := range tokenizeWords(prompt) {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if _, ok := guessTokens[token]; ok {
			matched = append(matched, token)
		}
	}
	return matched
}

// rankGuesses orders a round's guesses by match count descending. Ties break
// by earliest submission by default; the stable mode keeps arrival order.
func rankGuesses(guesses []Guess, tieBreak string) []Guess {
	ranked := make([]Guess, len(guesses))
	copy(ranked, guesses)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchCount != ranked[j].MatchCount {
			return ranked[i].MatchCount > ranked[j].MatchCount
		}
		if tieBreak == config.TieBreakStable {
			return false
		}
		return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
	})
	return ranked
}

// computeRoundResult picks the top three distinct players of a round.
// Players who submitted nothing cannot place; unfilled slots stay zero.
func computeRoundResult(round *Round, tieBreak string) RoundResult {
	result := RoundResult{}
	if round == nil {
		return result
	}
	placed := 0
	seen := make(map[int]struct{})
	for _, guess := range rankGuesses(round.Guesses, tieBreak) {
		if _, dup := seen[guess.PlayerID]; dup {
			continue
		}
		seen[guess.PlayerID] = struct{}{}
		switch placed {
		case 0:
			result.FirstPlaceID = guess.PlayerID
		case 1:
			result.SecondPlaceID = guess.PlayerID
		case 2:
			result.ThirdPlaceID = guess.PlayerID
		}
		placed++
		if placed == 3 {
			break
		}
	}
	return result
}

// applyPlacements adds placement points to cumulative scores.
func applyPlacements(game *Game, result RoundResult) {
	award := func(playerID, points int) {
		if playerID == 0 {
			return
		}
		if player := findPlayer(game, playerID); player != nil {
			player.Score += points
		}
	}
	award(result.FirstPlaceID, firstPlacePoints)
	award(result.SecondPlaceID, secondPlacePoints)
	award(result.ThirdPlaceID, thirdPlacePoints)
}

type playerStanding struct {
	PlayerID int    `json:"playerId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// standings lists players by cumulative score descending, join order on ties.
func standings(game *Game) []playerStanding {
	list := make([]playerStanding, 0, len(game.Players))
	for _, player := range game.Players {
		list = append(list, playerStanding{
			PlayerID: player.ID,
			Username: player.Username,
			Score:    player.Score,
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
	return list
}
