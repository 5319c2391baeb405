package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prompt-rush/internal/config"

	"github.com/jonboulle/clockwork"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// newGameServer builds a storeless server on a fake clock with a stub image
// generator, so tests control every tick and never reach the network.
func newGameServer(t *testing.T) (*Server, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cfg := config.Default()
	srv := newWithClock(nil, cfg, clock)
	srv.images = ImageGeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "https://images.test/" + normalizeText(prompt), nil
	})
	return srv, clock
}

// newBoundlessConn registers a connection without a transport; outbound
// messages pile up in its buffered send channel for assertions.
func newBoundlessConn(s *Server) *ConnectionSession {
	return s.registry.Register(nil)
}

type sentMessage struct {
	Type    string
	Payload map[string]any
}

func drainMessages(t *testing.T, cs *ConnectionSession) []sentMessage {
	t.Helper()
	messages := make([]sentMessage, 0)
	for {
		select {
		case data := <-cs.send:
			var env struct {
				Type    string         `json:"type"`
				Payload map[string]any `json:"payload"`
			}
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("decode outbound message: %v", err)
			}
			messages = append(messages, sentMessage{Type: env.Type, Payload: env.Payload})
		default:
			return messages
		}
	}
}

func countMessages(messages []sentMessage, kind string) int {
	count := 0
	for _, message := range messages {
		if message.Type == kind {
			count++
		}
	}
	return count
}

func createTestGame(t *testing.T, s *Server, username, sessionID string) (*Game, *ConnectionSession) {
	t.Helper()
	cs := newBoundlessConn(s)
	err := s.handleCreateGame(cs, createGamePayload{
		Username:     username,
		TimerSeconds: 30,
		TotalRounds:  3,
		SessionID:    sessionID,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	game, ok := s.store.GetGame(cs.GameID)
	if !ok {
		t.Fatalf("created game %s not in store", cs.GameID)
	}
	return game, cs
}

func joinTestGame(t *testing.T, s *Server, game *Game, username, sessionID string) *ConnectionSession {
	t.Helper()
	cs := newBoundlessConn(s)
	err := s.handleJoinGame(cs, joinGamePayload{
		Username:  username,
		GameCode:  game.JoinCode,
		SessionID: sessionID,
	})
	if err != nil {
		t.Fatalf("join game: %v", err)
	}
	return cs
}

func startTestRound(t *testing.T, s *Server, host *ConnectionSession, prompt string) {
	t.Helper()
	err := s.handleStartGame(host, startGamePayload{
		GameID:    host.GameID,
		Prompt:    prompt,
		SessionID: host.SessionToken,
	})
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
}

// waitFor polls until the condition holds, for goroutine-driven effects.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
