package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	return conn
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, kind string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	err = conn.WriteJSON(map[string]any{"type": kind, "payload": json.RawMessage(raw)})
	if err != nil {
		t.Fatalf("write %s: %v", kind, err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) sentMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return sentMessage{Type: env.Type, Payload: env.Payload}
}

// readUntil consumes messages until one of the wanted kind arrives.
func readUntil(t *testing.T, conn *websocket.Conn, kind string) sentMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		message := readEnvelope(t, conn)
		if message.Type == kind {
			return message
		}
	}
	t.Fatalf("no %s message arrived", kind)
	return sentMessage{}
}

func TestWebsocketWelcome(t *testing.T) {
	s, _ := newGameServer(t)
	ts := newTestServer(t, s.Handler())
	defer ts.Close()

	conn := dialWS(t, ts.URL)
	defer conn.Close()

	welcome := readEnvelope(t, conn)
	if welcome.Type != msgWelcome {
		t.Fatalf("expected WELCOME first, got %s", welcome.Type)
	}
	if id, _ := welcome.Payload["connectionId"].(string); id == "" {
		t.Fatalf("WELCOME must carry a connection id: %+v", welcome.Payload)
	}
}

func TestWebsocketCreateAndJoinFlow(t *testing.T) {
	s, _ := newGameServer(t)
	ts := newTestServer(t, s.Handler())
	defer ts.Close()

	host := dialWS(t, ts.URL)
	defer host.Close()
	readUntil(t, host, msgWelcome)

	writeEnvelope(t, host, msgCreateGame, map[string]any{
		"username":  "Ada",
		"sessionId": "sess-ada",
	})
	joined := readUntil(t, host, msgPlayerJoined)
	gameCode, _ := joined.Payload["gameCode"].(string)
	if gameCode == "" {
		t.Fatalf("PLAYER_JOINED must carry the join code: %+v", joined.Payload)
	}
	readUntil(t, host, msgGameState)

	guest := dialWS(t, ts.URL)
	defer guest.Close()
	readUntil(t, guest, msgWelcome)
	writeEnvelope(t, guest, msgJoinGame, map[string]any{
		"username": "Bob",
		"gameCode": gameCode,
		"sessionId": "sess-bob",
	})
	readUntil(t, guest, msgPlayerJoined)

	// The host hears about the new player too.
	state := readUntil(t, host, msgPlayerUpdate)
	players, _ := state.Payload["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("expected 2 players in update, got %+v", state.Payload)
	}
}

func TestWebsocketRoundTrip(t *testing.T) {
	s, _ := newGameServer(t)
	ts := newTestServer(t, s.Handler())
	defer ts.Close()

	host := dialWS(t, ts.URL)
	defer host.Close()
	readUntil(t, host, msgWelcome)
	writeEnvelope(t, host, msgCreateGame, map[string]any{
		"username":  "Ada",
		"sessionId": "sess-ada",
	})
	readUntil(t, host, msgGameState)

	writeEnvelope(t, host, msgStartGame, map[string]any{
		"prompt":    "a red fox",
		"sessionId": "sess-ada",
	})
	start := readUntil(t, host, msgRoundStart)
	round, _ := start.Payload["round"].(map[string]any)
	if round["prompt"] != "a red fox" {
		t.Fatalf("ROUND_START prompt: %+v", start.Payload)
	}

	writeEnvelope(t, host, msgSubmitGuess, map[string]any{
		"guessText": "is it a fox",
		"sessionId": "sess-ada",
	})
	guess := readUntil(t, host, msgPlayerGuess)
	stored, _ := guess.Payload["guess"].(map[string]any)
	if count, _ := stored["matchCount"].(float64); int(count) != 1 {
		t.Fatalf("expected one matched word, got %+v", guess.Payload)
	}
}

func TestWebsocketUnknownTypeGetsError(t *testing.T) {
	s, _ := newGameServer(t)
	ts := newTestServer(t, s.Handler())
	defer ts.Close()

	conn := dialWS(t, ts.URL)
	defer conn.Close()
	readUntil(t, conn, msgWelcome)

	writeEnvelope(t, conn, "NO_SUCH_TYPE", map[string]any{})
	failure := readUntil(t, conn, msgGameError)
	if message, _ := failure.Payload["message"].(string); message == "" {
		t.Fatalf("GAME_ERROR must explain itself: %+v", failure.Payload)
	}
}

func TestWebsocketReconnectEndToEnd(t *testing.T) {
	s, _ := newGameServer(t)
	ts := newTestServer(t, s.Handler())
	defer ts.Close()

	first := dialWS(t, ts.URL)
	readUntil(t, first, msgWelcome)
	writeEnvelope(t, first, msgCreateGame, map[string]any{
		"username":  "Ada",
		"sessionId": "sess-ada",
	})
	joined := readUntil(t, first, msgPlayerJoined)
	gameCode, _ := joined.Payload["gameCode"].(string)
	playerID, _ := joined.Payload["playerId"].(float64)
	first.Close()

	second := dialWS(t, ts.URL)
	defer second.Close()
	readUntil(t, second, msgWelcome)
	writeEnvelope(t, second, msgReconnectRequest, map[string]any{
		"gameCode":  gameCode,
		"sessionId": "sess-ada",
	})
	success := readUntil(t, second, msgReconnectSuccess)
	if got, _ := success.Payload["playerId"].(float64); got != playerID {
		t.Fatalf("reconnect resolved player %v, want %v", got, playerID)
	}
}
