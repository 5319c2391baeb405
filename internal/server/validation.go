package server

import (
	"errors"
	"fmt"
	"unicode"
)

const (
	maxNameLength    = 20
	maxGuessLength   = 120
	maxPromptLength  = 140
	maxRoomNameLen   = 40
	maxRoundsPerGame = 10
	minTimerSeconds  = 10
	maxTimerSeconds  = 300
)

func validateUsername(name string) (string, error) {
	return validateText("username", name, maxNameLength)
}

func validateGuessText(text string) (string, error) {
	return validateText("guess", text, maxGuessLength)
}

func validatePrompt(text string) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", errors.New("prompt is required")
	}
	if len(trimmed) > maxPromptLength {
		return "", fmt.Errorf("prompt must be %d characters or fewer", maxPromptLength)
	}
	if !isSafeText(trimmed) {
		return "", errors.New("prompt contains unsupported characters")
	}
	return trimmed, nil
}

func validateRoomName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", nil
	}
	if len(trimmed) > maxRoomNameLen {
		return "", fmt.Errorf("room name must be %d characters or fewer", maxRoomNameLen)
	}
	if !isSafeText(trimmed) {
		return "", errors.New("room name contains unsupported characters")
	}
	return trimmed, nil
}

func validateTimerSeconds(seconds, fallback int) (int, error) {
	if seconds == 0 {
		return fallback, nil
	}
	if seconds < minTimerSeconds || seconds > maxTimerSeconds {
		return 0, fmt.Errorf("timer must be between %d and %d seconds", minTimerSeconds, maxTimerSeconds)
	}
	return seconds, nil
}

func validateTotalRounds(rounds, fallback int) (int, error) {
	if rounds == 0 {
		return fallback, nil
	}
	if rounds < 1 || rounds > maxRoundsPerGame {
		return 0, fmt.Errorf("rounds must be between 1 and %d", maxRoundsPerGame)
	}
	return rounds, nil
}

func validateText(field, text string, limit int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if len(trimmed) > limit {
		return "", fmt.Errorf("%s must be %d characters or fewer", field, limit)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", field)
	}
	return trimmed, nil
}

func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
