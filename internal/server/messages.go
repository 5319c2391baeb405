package server

import "encoding/json"

// Server-originated message kinds.
const (
	msgWelcome             = "WELCOME"
	msgGameState           = "GAME_STATE"
	msgPlayerUpdate        = "PLAYER_UPDATE"
	msgRoundStart          = "ROUND_START"
	msgTimerUpdate         = "TIMER_UPDATE"
	msgRoundEnd            = "ROUND_END"
	msgPlayerGuess         = "PLAYER_GUESS"
	msgPlayerJoined        = "PLAYER_JOINED"
	msgReconnectSuccess    = "RECONNECT_SUCCESS"
	msgReconnectFailure    = "RECONNECT_FAILURE"
	msgPlayersOnlineUpdate = "PLAYERS_ONLINE_UPDATE"
	msgGameError           = "GAME_ERROR"
	msgGameReset           = "GAME_RESET"
	msgServerRestart       = "SERVER_RESTART"
)

// Client-originated message kinds.
const (
	msgCreateGame       = "CREATE_GAME"
	msgJoinGame         = "JOIN_GAME"
	msgStartGame        = "START_GAME"
	msgSubmitGuess      = "SUBMIT_GUESS"
	msgNextRound        = "NEXT_ROUND"
	msgEndGame          = "END_GAME"
	msgDeleteGame       = "DELETE_GAME"
	msgReconnectRequest = "RECONNECT_REQUEST"
	msgHeartbeat        = "HEARTBEAT"
)

type inboundEnvelope struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	ClientID string          `json:"clientId,omitempty"`
}

type outboundEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type createGamePayload struct {
	Username     string `json:"username"`
	TimerSeconds int    `json:"timerSeconds"`
	TotalRounds  int    `json:"totalRounds"`
	RoomName     string `json:"roomName,omitempty"`
	RoomPassword string `json:"roomPassword,omitempty"`
	SessionID    string `json:"sessionId"`
}

type joinGamePayload struct {
	Username  string `json:"username"`
	GameCode  string `json:"gameCode"`
	Password  string `json:"password,omitempty"`
	SessionID string `json:"sessionId"`
}

type startGamePayload struct {
	GameID    string `json:"gameId"`
	Prompt    string `json:"prompt"`
	ImageURL  string `json:"imageUrl,omitempty"`
	SessionID string `json:"sessionId"`
}

type submitGuessPayload struct {
	GameID    string `json:"gameId"`
	PlayerID  int    `json:"playerId"`
	RoundID   int    `json:"roundId"`
	GuessText string `json:"guessText"`
	SessionID string `json:"sessionId,omitempty"`
}

type nextRoundPayload struct {
	GameID    string `json:"gameId"`
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId"`
}

type endGamePayload struct {
	GameID string `json:"gameId"`
}

type deleteGamePayload struct {
	GameID    string `json:"gameId"`
	SessionID string `json:"sessionId"`
}

type reconnectPayload struct {
	GameCode      string `json:"gameCode,omitempty"`
	PlayerID      int    `json:"playerId,omitempty"`
	Username      string `json:"username,omitempty"`
	SessionID     string `json:"sessionId"`
	WasHost       bool   `json:"wasHost,omitempty"`
	HostSessionID string `json:"hostSessionId,omitempty"`
}

type heartbeatPayload struct {
	PlayerID  int    `json:"playerId"`
	GameID    string `json:"gameId"`
	Timestamp int64  `json:"timestamp"`
	SessionID string `json:"sessionId"`
}
