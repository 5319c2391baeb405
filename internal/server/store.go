package server

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Store is the in-process authority for live game state. Every mutation of a
// game runs through UpdateGame under that game's own lock, so message
// handling and timer ticks for one game are serialized while distinct games
// proceed in parallel. Accessors hand out detached deep copies taken under
// that lock; the live game is only ever touched inside an UpdateGame closure.
type Store struct {
	mu           sync.Mutex
	nextGameID   int
	nextPlayerID int
	nextUserID   int
	nextGuessID  int
	games        map[string]*gameEntry
	users        map[string]*User
}

type gameEntry struct {
	mu   sync.Mutex
	game *Game
}

func NewStore() *Store {
	return &Store{
		nextGameID:   1,
		nextPlayerID: 1,
		nextUserID:   1,
		nextGuessID:  1,
		games:        make(map[string]*gameEntry),
		users:        make(map[string]*User),
	}
}

// EnsureUser returns the user identity behind a username, creating it when
// unknown. Usernames are matched case-insensitively.
func (s *Store) EnsureUser(username string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(username)
	if user, ok := s.users[key]; ok {
		return user
	}
	user := &User{ID: s.nextUserID, Username: username}
	s.nextUserID++
	s.users[key] = user
	return user
}

func (s *Store) CreateGame(host *User, timerSeconds, totalRounds int, roomName, roomPassword string) (*Game, *Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("game-%d", s.nextGameID)
	s.nextGameID++
	code := newJoinCode()
	for s.joinCodeInUseLocked(code) {
		code = newJoinCode()
	}
	player := Player{
		ID:       s.nextPlayerID,
		UserID:   host.ID,
		Username: host.Username,
		IsHost:   true,
		IsActive: true,
		JoinedAt: timeNowUTC(),
	}
	s.nextPlayerID++
	game := &Game{
		ID:           id,
		JoinCode:     code,
		RoomName:     roomName,
		RoomPassword: roomPassword,
		Status:       statusLobby,
		HostUserID:   host.ID,
		TotalRounds:  totalRounds,
		TimerSeconds: timerSeconds,
		CreatedAt:    timeNowUTC(),
		Players:      []Player{player},
	}
	s.games[id] = &gameEntry{game: game}
	clone := cloneGame(game)
	return clone, &clone.Players[0]
}

// joinCodeInUseLocked reports whether a live game already carries the code.
// Join codes are immutable after creation, so reading them under the store
// lock alone is safe. Caller holds s.mu.
func (s *Store) joinCodeInUseLocked(code string) bool {
	for _, entry := range s.games {
		if strings.EqualFold(entry.game.JoinCode, code) {
			return true
		}
	}
	return false
}

func (s *Store) entry(id string) (*gameEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.games[id]
	return entry, ok
}

// GetGame returns a detached copy of the game taken under its lock.
func (s *Store) GetGame(id string) (*Game, bool) {
	entry, ok := s.entry(id)
	if !ok {
		return nil, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneGame(entry.game), true
}

// UpdateGame runs update while holding the game's lock. The closure owns the
// full read-validate-mutate sequence for one inbound message or timer tick.
// The returned game is a copy taken before the lock is released; broadcasting
// and persistence read it without racing later updates.
func (s *Store) UpdateGame(id string, update func(game *Game) error) (*Game, error) {
	entry, ok := s.entry(id)
	if !ok {
		return nil, notFoundf("game %s", id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := update(entry.game); err != nil {
		return nil, err
	}
	return cloneGame(entry.game), nil
}

func (s *Store) FindGameByJoinCode(code string) (*Game, bool) {
	s.mu.Lock()
	var found *gameEntry
	for _, entry := range s.games {
		if strings.EqualFold(entry.game.JoinCode, code) {
			found = entry
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return nil, false
	}
	found.mu.Lock()
	defer found.mu.Unlock()
	return cloneGame(found.game), true
}

// FindGameByPlayerID locates the game a player belongs to. Player rosters
// change under the per-game lock, so each candidate is scanned under its own
// lock after the store lock is released.
func (s *Store) FindGameByPlayerID(playerID int) (*Game, bool) {
	s.mu.Lock()
	entries := make([]*gameEntry, 0, len(s.games))
	for _, entry := range s.games {
		entries = append(entries, entry)
	}
	s.mu.Unlock()
	for _, entry := range entries {
		entry.mu.Lock()
		for i := range entry.game.Players {
			if entry.game.Players[i].ID == playerID {
				clone := cloneGame(entry.game)
				entry.mu.Unlock()
				return clone, true
			}
		}
		entry.mu.Unlock()
	}
	return nil, false
}

// UpdateGameID re-keys a game after its durable ID is known. The caller's
// copy is updated in step with the live game. Locks are taken in game-then-
// store order, same as UpdateGame closures that allocate IDs.
func (s *Store) UpdateGameID(game *Game, newID string) {
	if game.ID == newID {
		return
	}
	entry, ok := s.entry(game.ID)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	s.mu.Lock()
	delete(s.games, entry.game.ID)
	s.games[newID] = entry
	if id := gameSortKey(newID); id >= s.nextGameID {
		s.nextGameID = id + 1
	}
	s.mu.Unlock()
	entry.game.ID = newID
	game.ID = newID
}

func (s *Store) RemoveGame(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// AllocPlayerID hands out the next player ID. Called from inside UpdateGame
// closures; the store lock is never held while a game lock is taken, so the
// order game lock -> store lock cannot deadlock.
func (s *Store) AllocPlayerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextPlayerID
	s.nextPlayerID++
	return id
}

func (s *Store) AllocGuessID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextGuessID
	s.nextGuessID++
	return id
}

// RestoreGame inserts a game rebuilt from the database, bumping the ID
// counters past anything the restored game contains.
func (s *Store) RestoreGame(game *Game) error {
	if game == nil {
		return notFoundf("game is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.ID]; ok {
		return invalidStatef("game %s already running", game.ID)
	}
	if s.joinCodeInUseLocked(game.JoinCode) {
		return invalidStatef("join code %s already running", game.JoinCode)
	}
	s.games[game.ID] = &gameEntry{game: game}
	if id := gameSortKey(game.ID); id >= s.nextGameID {
		s.nextGameID = id + 1
	}
	for _, player := range game.Players {
		if player.ID >= s.nextPlayerID {
			s.nextPlayerID = player.ID + 1
		}
		key := strings.ToLower(player.Username)
		if _, ok := s.users[key]; !ok {
			user := &User{ID: s.nextUserID, Username: player.Username}
			s.nextUserID++
			s.users[key] = user
		}
	}
	for _, round := range game.Rounds {
		for _, guess := range round.Guesses {
			if guess.ID >= s.nextGuessID {
				s.nextGuessID = guess.ID + 1
			}
		}
	}
	return nil
}

func (s *Store) ListGameSummaries() []GameSummary {
	s.mu.Lock()
	entries := make([]*gameEntry, 0, len(s.games))
	for _, entry := range s.games {
		entries = append(entries, entry)
	}
	s.mu.Unlock()
	list := make([]GameSummary, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		list = append(list, GameSummary{
			ID:       entry.game.ID,
			JoinCode: entry.game.JoinCode,
			Status:   entry.game.Status,
			Players:  len(entry.game.Players),
		})
		entry.mu.Unlock()
	}
	sort.Slice(list, func(i, j int) bool {
		return gameSortKey(list[i].ID) < gameSortKey(list[j].ID)
	})
	return list
}

func gameSortKey(id string) int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0
	}
	value, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return value
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
