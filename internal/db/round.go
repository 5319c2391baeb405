package db

import (
	"time"

	"gorm.io/gorm"
)

type Round struct {
	ID        uint       `gorm:"primaryKey"`
	GameID    uint       `gorm:"index;not null;uniqueIndex:idx_rounds_game_number"`
	Number    int        `gorm:"not null;uniqueIndex:idx_rounds_game_number"`
	Prompt    string     `gorm:"size:280;not null"`
	ImageURL  string     `gorm:"size:512"`
	Status    string     `gorm:"size:32;not null"`
	StartedAt *time.Time
	EndedAt   *time.Time
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Guesses   []Guess
	Events    []Event
}

// RoundsByGame returns a game's rounds ordered by round number.
func RoundsByGame(conn *gorm.DB, gameID uint) ([]Round, error) {
	var records []Round
	if err := conn.Where("game_id = ?", gameID).Order("number asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateRoundStatus marks a round's status and optional end time.
func UpdateRoundStatus(conn *gorm.DB, roundID uint, status string, endedAt *time.Time) error {
	updates := map[string]any{"status": status}
	if endedAt != nil {
		updates["ended_at"] = endedAt
	}
	return conn.Model(&Round{}).Where("id = ?", roundID).Updates(updates).Error
}
