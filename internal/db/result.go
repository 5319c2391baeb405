package db

import (
	"time"

	"gorm.io/gorm"
)

type RoundResult struct {
	ID            uint      `gorm:"primaryKey"`
	RoundID       uint      `gorm:"uniqueIndex;not null"`
	FirstPlaceID  *uint     `gorm:"index"`
	SecondPlaceID *uint     `gorm:"index"`
	ThirdPlaceID  *uint     `gorm:"index"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// ResultByRound fetches the computed result for a round, if any.
func ResultByRound(conn *gorm.DB, roundID uint) (*RoundResult, error) {
	var record RoundResult
	if err := conn.Where("round_id = ?", roundID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
