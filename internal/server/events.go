package server

// EventPayload is the JSON body of a persisted audit event.
type EventPayload struct {
	GameID     string `json:"game_id,omitempty"`
	JoinCode   string `json:"join_code,omitempty"`
	PlayerID   int    `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	Round      int    `json:"round,omitempty"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
	MatchCount int    `json:"match_count,omitempty"`
}
