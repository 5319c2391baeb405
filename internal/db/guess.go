package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Guess struct {
	ID           uint           `gorm:"primaryKey"`
	RoundID      uint           `gorm:"index;not null;uniqueIndex:idx_guesses_round_player"`
	PlayerID     uint           `gorm:"index;not null;uniqueIndex:idx_guesses_round_player"`
	Text         string         `gorm:"size:280;not null"`
	MatchedWords datatypes.JSON `gorm:"type:jsonb"`
	MatchCount   int            `gorm:"not null;default:0"`
	SubmittedAt  time.Time      `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

// GuessesByRound returns a round's guesses in submission order.
func GuessesByRound(conn *gorm.DB, roundID uint) ([]Guess, error) {
	var records []Guess
	if err := conn.Where("round_id = ?", roundID).Order("submitted_at asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
