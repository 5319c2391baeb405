package server

import (
	"errors"
	"fmt"
	"testing"
)

func TestEnsureUserCaseInsensitive(t *testing.T) {
	store := NewStore()
	first := store.EnsureUser("Ada")
	second := store.EnsureUser("ada")
	if first.ID != second.ID {
		t.Fatalf("expected same user for Ada/ada, got %d and %d", first.ID, second.ID)
	}
}

func TestCreateGameHostSetup(t *testing.T) {
	store := NewStore()
	user := store.EnsureUser("Ada")
	game, host := store.CreateGame(user, 45, 5, "den", "")
	if game.Status != statusLobby {
		t.Fatalf("expected lobby status, got %s", game.Status)
	}
	if !host.IsHost || !host.IsActive {
		t.Fatalf("expected active host player, got %+v", host)
	}
	if game.HostUserID != user.ID {
		t.Fatalf("expected host user %d, got %d", user.ID, game.HostUserID)
	}
	if game.TimerSeconds != 45 || game.TotalRounds != 5 {
		t.Fatalf("unexpected game settings %+v", game)
	}
	if len(game.JoinCode) != 6 {
		t.Fatalf("expected 6-char join code, got %q", game.JoinCode)
	}
}

func TestFindGameByJoinCodeCaseInsensitive(t *testing.T) {
	store := NewStore()
	game, _ := store.CreateGame(store.EnsureUser("Ada"), 30, 3, "", "")
	found, ok := store.FindGameByJoinCode(lowered(game.JoinCode))
	if !ok || found.ID != game.ID {
		t.Fatalf("expected to find game by lower-cased code")
	}
}

func lowered(code string) string {
	buf := []byte(code)
	for i, c := range buf {
		if c >= 'A' && c <= 'Z' {
			buf[i] = c + 'a' - 'A'
		}
	}
	return string(buf)
}

func TestUpdateGameUnknownIsNotFound(t *testing.T) {
	store := NewStore()
	_, err := store.UpdateGame("game-404", func(game *Game) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateGamePropagatesClosureError(t *testing.T) {
	store := NewStore()
	game, _ := store.CreateGame(store.EnsureUser("Ada"), 30, 3, "", "")
	boom := errors.New("boom")
	if _, err := store.UpdateGame(game.ID, func(game *Game) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected closure error, got %v", err)
	}
}

func TestUpdateGameIDRekeys(t *testing.T) {
	store := NewStore()
	game, _ := store.CreateGame(store.EnsureUser("Ada"), 30, 3, "", "")
	store.UpdateGameID(game, "game-77")
	if _, ok := store.GetGame("game-77"); !ok {
		t.Fatalf("expected game under new key")
	}
	if _, ok := store.GetGame("game-1"); ok {
		t.Fatalf("old key should be gone")
	}
	next, _ := store.CreateGame(store.EnsureUser("Bob"), 30, 3, "", "")
	if gameSortKey(next.ID) <= 77 {
		t.Fatalf("expected counter bumped past 77, got %s", next.ID)
	}
}

func TestRestoreGameBumpsCounters(t *testing.T) {
	store := NewStore()
	restored := &Game{
		ID:       "game-10",
		JoinCode: "ZZZZZZ",
		Status:   statusLobby,
		Players: []Player{
			{ID: 40, Username: "Ada", IsHost: true, IsActive: true},
		},
	}
	if err := store.RestoreGame(restored); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := store.RestoreGame(restored); err == nil {
		t.Fatalf("expected duplicate restore to fail")
	}
	game, _ := store.CreateGame(store.EnsureUser("Bob"), 30, 3, "", "")
	if gameSortKey(game.ID) <= 10 {
		t.Fatalf("expected game counter past 10, got %s", game.ID)
	}
	if game.Players[0].ID <= 40 {
		t.Fatalf("expected player counter past 40, got %d", game.Players[0].ID)
	}
}

func TestGetGameReturnsDetachedCopy(t *testing.T) {
	store := NewStore()
	game, _ := store.CreateGame(store.EnsureUser("Ada"), 30, 3, "", "")
	snapshot, ok := store.GetGame(game.ID)
	if !ok {
		t.Fatalf("expected game %s", game.ID)
	}
	snapshot.Status = statusFinished
	snapshot.Players[0].Score = 99

	fresh, _ := store.GetGame(game.ID)
	if fresh.Status != statusLobby {
		t.Fatalf("snapshot write leaked into store status: %s", fresh.Status)
	}
	if fresh.Players[0].Score != 0 {
		t.Fatalf("snapshot write leaked into store player: %d", fresh.Players[0].Score)
	}
}

func TestUpdateGameReturnsDetachedCopy(t *testing.T) {
	store := NewStore()
	game, _ := store.CreateGame(store.EnsureUser("Ada"), 30, 3, "", "")
	updated, err := store.UpdateGame(game.ID, func(game *Game) error {
		game.Rounds = append(game.Rounds, Round{Number: 1, Prompt: "a red fox", Status: roundActive})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	updated.Rounds[0].Prompt = "tampered"
	updated.Players[0].IsActive = false

	fresh, _ := store.GetGame(game.ID)
	if fresh.Rounds[0].Prompt != "a red fox" {
		t.Fatalf("returned game shares round storage with the store")
	}
	if !fresh.Players[0].IsActive {
		t.Fatalf("returned game shares player storage with the store")
	}
}

func TestCreateGameJoinCodesUnique(t *testing.T) {
	store := NewStore()
	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		game, _ := store.CreateGame(store.EnsureUser(fmt.Sprintf("user-%d", i)), 30, 3, "", "")
		if _, dup := seen[game.JoinCode]; dup {
			t.Fatalf("join code %s issued twice", game.JoinCode)
		}
		seen[game.JoinCode] = struct{}{}
		store.mu.Lock()
		inUse := store.joinCodeInUseLocked(game.JoinCode)
		store.mu.Unlock()
		if !inUse {
			t.Fatalf("join code %s not registered as in use", game.JoinCode)
		}
	}
	store.mu.Lock()
	inUse := store.joinCodeInUseLocked("!not-a-code")
	store.mu.Unlock()
	if inUse {
		t.Fatalf("unused code reported as taken")
	}
}

func TestFindGameByPlayerID(t *testing.T) {
	store := NewStore()
	game, host := store.CreateGame(store.EnsureUser("Ada"), 30, 3, "", "")
	found, ok := store.FindGameByPlayerID(host.ID)
	if !ok || found.ID != game.ID {
		t.Fatalf("expected to find game for player %d", host.ID)
	}
	if _, ok := store.FindGameByPlayerID(9999); ok {
		t.Fatalf("expected no game for unknown player")
	}
}
