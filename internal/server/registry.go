package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// ConnectionSession is one live transport connection plus whatever player it
// currently represents. It is never persisted; a browser refresh produces a
// fresh one that the reconnect resolver rebinds.
type ConnectionSession struct {
	ID            string
	SessionToken  string
	GameID        string
	PlayerID      int
	UserID        int
	LastHeartbeat time.Time

	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *ConnectionSession) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// sessionRegistry owns every live connection and remembers which session
// token mapped to which player per game, so a token presented after a
// disconnect still resolves. Constructed by the server, drained on shutdown.
type sessionRegistry struct {
	clock clockwork.Clock

	mu     sync.Mutex
	conns  map[string]*ConnectionSession
	byGame map[string]map[string]*ConnectionSession
	tokens map[string]map[string]int // gameID -> sessionToken -> playerID
	grace  map[string]clockwork.Timer
}

func newSessionRegistry(clock clockwork.Clock) *sessionRegistry {
	return &sessionRegistry{
		clock:  clock,
		conns:  make(map[string]*ConnectionSession),
		byGame: make(map[string]map[string]*ConnectionSession),
		tokens: make(map[string]map[string]int),
		grace:  make(map[string]clockwork.Timer),
	}
}

// Register admits a new transport connection and assigns its connection ID.
func (r *sessionRegistry) Register(conn *websocket.Conn) *ConnectionSession {
	cs := &ConnectionSession{
		ID:            uuid.NewString(),
		conn:          conn,
		send:          make(chan []byte, 64),
		LastHeartbeat: r.clock.Now(),
	}
	r.mu.Lock()
	r.conns[cs.ID] = cs
	r.mu.Unlock()
	return cs
}

// Bind associates a connection with a (player, game, session token) triple
// and cancels any pending grace timer for that player.
func (r *sessionRegistry) Bind(cs *ConnectionSession, gameID string, playerID, userID int, sessionToken string) {
	r.mu.Lock()
	if cs.GameID != "" && cs.GameID != gameID {
		r.removeFromGameLocked(cs)
	}
	cs.GameID = gameID
	cs.PlayerID = playerID
	cs.UserID = userID
	cs.SessionToken = sessionToken
	cs.LastHeartbeat = r.clock.Now()
	group := r.byGame[gameID]
	if group == nil {
		group = make(map[string]*ConnectionSession)
		r.byGame[gameID] = group
	}
	group[cs.ID] = cs
	if sessionToken != "" {
		bindings := r.tokens[gameID]
		if bindings == nil {
			bindings = make(map[string]int)
			r.tokens[gameID] = bindings
		}
		bindings[sessionToken] = playerID
	}
	timer, ok := r.grace[graceKey(gameID, playerID)]
	if ok {
		timer.Stop()
		delete(r.grace, graceKey(gameID, playerID))
	}
	r.mu.Unlock()
}

// Unregister drops a connection and reports the binding it held.
func (r *sessionRegistry) Unregister(cs *ConnectionSession) (gameID string, playerID int) {
	r.mu.Lock()
	delete(r.conns, cs.ID)
	r.removeFromGameLocked(cs)
	gameID, playerID = cs.GameID, cs.PlayerID
	r.mu.Unlock()
	cs.close()
	return gameID, playerID
}

func (r *sessionRegistry) removeFromGameLocked(cs *ConnectionSession) {
	group := r.byGame[cs.GameID]
	if group == nil {
		return
	}
	delete(group, cs.ID)
	if len(group) == 0 {
		delete(r.byGame, cs.GameID)
	}
}

func (r *sessionRegistry) ConnectionsForGame(gameID string) []*ConnectionSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	group := r.byGame[gameID]
	list := make([]*ConnectionSession, 0, len(group))
	for _, cs := range group {
		list = append(list, cs)
	}
	return list
}

// connectionBinding is a point-in-time copy of what a connection is bound to.
type connectionBinding struct {
	GameID   string
	PlayerID int
	UserID   int
}

// Binding reads a connection's current binding under the registry lock.
func (r *sessionRegistry) Binding(cs *ConnectionSession) connectionBinding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return connectionBinding{GameID: cs.GameID, PlayerID: cs.PlayerID, UserID: cs.UserID}
}

// BindingsForGame snapshots the bindings of every connection in a game.
func (r *sessionRegistry) BindingsForGame(gameID string) []connectionBinding {
	r.mu.Lock()
	defer r.mu.Unlock()
	group := r.byGame[gameID]
	list := make([]connectionBinding, 0, len(group))
	for _, cs := range group {
		list = append(list, connectionBinding{GameID: cs.GameID, PlayerID: cs.PlayerID, UserID: cs.UserID})
	}
	return list
}

// Heartbeat records liveness for a connection.
func (r *sessionRegistry) Heartbeat(cs *ConnectionSession) {
	r.mu.Lock()
	cs.LastHeartbeat = r.clock.Now()
	r.mu.Unlock()
}

// OnlinePlayers lists the distinct players in a game with a bound connection
// that heartbeat at or after the cutoff.
func (r *sessionRegistry) OnlinePlayers(gameID string, cutoff time.Time) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[int]struct{})
	online := make([]int, 0)
	for _, cs := range r.byGame[gameID] {
		if cs.PlayerID == 0 || cs.LastHeartbeat.Before(cutoff) {
			continue
		}
		if _, dup := seen[cs.PlayerID]; dup {
			continue
		}
		seen[cs.PlayerID] = struct{}{}
		online = append(online, cs.PlayerID)
	}
	return online
}

// PlayerForToken resolves a session token within one game, covering tokens
// whose original connection already dropped.
func (r *sessionRegistry) PlayerForToken(gameID, sessionToken string) (int, bool) {
	if sessionToken == "" {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	bindings := r.tokens[gameID]
	playerID, ok := bindings[sessionToken]
	return playerID, ok
}

// HasConnectionForPlayer reports whether any live connection is bound to the
// player, optionally requiring a matching session token.
func (r *sessionRegistry) HasConnectionForPlayer(gameID string, playerID int, sessionToken string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cs := range r.byGame[gameID] {
		if cs.PlayerID != playerID {
			continue
		}
		if sessionToken != "" && cs.SessionToken != sessionToken {
			continue
		}
		return true
	}
	return false
}

// StartGrace arms the disconnect grace timer for a player. A prior timer for
// the same player is replaced.
func (r *sessionRegistry) StartGrace(gameID string, playerID int, d time.Duration, expire func()) {
	key := graceKey(gameID, playerID)
	r.mu.Lock()
	if timer, ok := r.grace[key]; ok {
		timer.Stop()
	}
	r.grace[key] = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		delete(r.grace, key)
		r.mu.Unlock()
		expire()
	})
	r.mu.Unlock()
}

func (r *sessionRegistry) CancelGrace(gameID string, playerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if timer, ok := r.grace[graceKey(gameID, playerID)]; ok {
		timer.Stop()
		delete(r.grace, graceKey(gameID, playerID))
	}
}

// DropGame forgets every binding, token, and grace timer for a deleted game.
func (r *sessionRegistry) DropGame(gameID string) []*ConnectionSession {
	r.mu.Lock()
	group := r.byGame[gameID]
	delete(r.byGame, gameID)
	delete(r.tokens, gameID)
	dropped := make([]*ConnectionSession, 0, len(group))
	for _, cs := range group {
		cs.GameID = ""
		cs.PlayerID = 0
		cs.UserID = 0
		dropped = append(dropped, cs)
	}
	for key, timer := range r.grace {
		if gameIDFromGraceKey(key) == gameID {
			timer.Stop()
			delete(r.grace, key)
		}
	}
	r.mu.Unlock()
	return dropped
}

// Drain stops every grace timer and closes every connection.
func (r *sessionRegistry) Drain() {
	r.mu.Lock()
	conns := make([]*ConnectionSession, 0, len(r.conns))
	for _, cs := range r.conns {
		conns = append(conns, cs)
	}
	for key, timer := range r.grace {
		timer.Stop()
		delete(r.grace, key)
	}
	r.conns = make(map[string]*ConnectionSession)
	r.byGame = make(map[string]map[string]*ConnectionSession)
	r.mu.Unlock()
	for _, cs := range conns {
		cs.close()
	}
}

func graceKey(gameID string, playerID int) string {
	return gameID + "/" + strconv.Itoa(playerID)
}

func gameIDFromGraceKey(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[:i]
		}
	}
	return key
}
