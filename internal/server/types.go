package server

import "time"

const (
	statusLobby    = "lobby"
	statusPlaying  = "playing"
	statusRoundEnd = "round_end"
	statusFinished = "finished"
)

const (
	roundPending   = "pending"
	roundActive    = "active"
	roundCompleted = "completed"
)

type GameSummary struct {
	ID       string
	JoinCode string
	Status   string
	Players  int
}

type User struct {
	ID       int
	DBID     uint
	Username string
}

type Game struct {
	ID            string
	DBID          uint
	JoinCode      string
	RoomName      string
	RoomPassword  string
	Status        string
	HostUserID    int
	CurrentRound  int
	TotalRounds   int
	TimerSeconds  int
	TimeRemaining int
	CreatedAt     time.Time
	Players       []Player
	Rounds        []Round
}

type Player struct {
	ID       int
	DBID     uint
	UserID   int
	Username string
	Score    int
	IsHost   bool
	IsActive bool
	JoinedAt time.Time
}

type Round struct {
	Number    int
	DBID      uint
	Prompt    string
	ImageURL  string
	Status    string
	StartedAt time.Time
	EndedAt   time.Time
	Guesses   []Guess
	Result    *RoundResult
}

type Guess struct {
	ID           int
	DBID         uint
	PlayerID     int
	Username     string
	Text         string
	MatchedWords []string
	MatchCount   int
	SubmittedAt  time.Time
}

// RoundResult holds placement player IDs; zero means the slot is unfilled.
type RoundResult struct {
	FirstPlaceID  int
	SecondPlaceID int
	ThirdPlaceID  int
}

// cloneGame deep-copies a game so it can be read after the game's lock is
// released.
func cloneGame(game *Game) *Game {
	clone := *game
	clone.Players = append([]Player(nil), game.Players...)
	clone.Rounds = make([]Round, len(game.Rounds))
	for i := range game.Rounds {
		round := game.Rounds[i]
		round.Guesses = append([]Guess(nil), round.Guesses...)
		if round.Result != nil {
			result := *round.Result
			round.Result = &result
		}
		clone.Rounds[i] = round
	}
	return &clone
}

func currentRound(game *Game) *Round {
	if game == nil || len(game.Rounds) == 0 {
		return nil
	}
	return &game.Rounds[len(game.Rounds)-1]
}

func activeRound(game *Game) *Round {
	round := currentRound(game)
	if round == nil || round.Status != roundActive {
		return nil
	}
	return round
}

func findPlayer(game *Game, playerID int) *Player {
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return &game.Players[i]
		}
	}
	return nil
}

func findPlayerByUser(game *Game, userID int) *Player {
	for i := range game.Players {
		if game.Players[i].UserID == userID {
			return &game.Players[i]
		}
	}
	return nil
}
