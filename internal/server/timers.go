package server

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type roundTimer struct {
	stop chan struct{}
	once sync.Once
}

func (t *roundTimer) cancel() {
	t.once.Do(func() { close(t.stop) })
}

// startRoundTimer launches the per-game countdown. Any prior timer for the
// game is cancelled first, so restarting is idempotent and at most one
// countdown is ever live per game.
func (s *Server) startRoundTimer(gameID string) {
	timer := &roundTimer{stop: make(chan struct{})}
	s.timersMu.Lock()
	if existing, ok := s.timers[gameID]; ok {
		existing.cancel()
	}
	s.timers[gameID] = timer
	s.timersMu.Unlock()
	go s.runCountdown(gameID, timer)
}

func (s *Server) stopRoundTimer(gameID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[gameID]; ok {
		timer.cancel()
		delete(s.timers, gameID)
	}
}

func (s *Server) clearRoundTimer(gameID string, timer *roundTimer) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if current, ok := s.timers[gameID]; ok && current == timer {
		delete(s.timers, gameID)
	}
}

// runCountdown decrements the remaining time once per tick and broadcasts
// each new value. Hitting zero injects the round-end into the same per-game
// serialization as host messages, so a timer expiry and a manual action can
// never race on one round.
func (s *Server) runCountdown(gameID string, timer *roundTimer) {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	defer s.clearRoundTimer(gameID, timer)
	for {
		select {
		case <-timer.stop:
			return
		case <-ticker.Chan():
			remaining, err := s.tickRound(gameID)
			if err != nil {
				log.Debug().Str("game_id", gameID).Err(err).Msg("countdown stopped")
				return
			}
			if remaining > 0 {
				s.broadcastToGame(gameID, msgTimerUpdate, map[string]any{
					"timeRemaining": remaining,
				})
				continue
			}
			s.finishRound(gameID)
			return
		}
	}
}

func (s *Server) tickRound(gameID string) (int, error) {
	remaining := 0
	_, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status != statusPlaying {
			return invalidStatef("game is %s", game.Status)
		}
		if game.TimeRemaining > 0 {
			game.TimeRemaining--
		}
		remaining = game.TimeRemaining
		return nil
	})
	return remaining, err
}
