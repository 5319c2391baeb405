package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Game struct {
	ID           uint      `gorm:"primaryKey"`
	JoinCode     string    `gorm:"size:12;uniqueIndex;not null"`
	Status       string    `gorm:"size:32;not null"`
	HostUserID   uint      `gorm:"index;not null"`
	CurrentRound int       `gorm:"not null;default:0"`
	TotalRounds  int       `gorm:"not null;default:3"`
	TimerSeconds int       `gorm:"not null;default:60"`
	RoomName     string    `gorm:"size:64"`
	RoomPassword string    `gorm:"size:64"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Players      []Player
	Rounds       []Round
	Events       []Event
}

// GameByJoinCode looks a game up by its join code, case-insensitively.
func GameByJoinCode(conn *gorm.DB, code string) (*Game, error) {
	var record Game
	if err := conn.Where("upper(join_code) = ?", strings.ToUpper(code)).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UnfinishedGames lists games that have not reached a terminal status.
func UnfinishedGames(conn *gorm.DB) ([]Game, error) {
	var records []Game
	if err := conn.Where("status <> ?", "finished").Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteGame removes a game and every dependent record.
func DeleteGame(conn *gorm.DB, gameID uint) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		var roundIDs []uint
		if err := tx.Model(&Round{}).Where("game_id = ?", gameID).Pluck("id", &roundIDs).Error; err != nil {
			return err
		}
		if len(roundIDs) > 0 {
			if err := tx.Where("round_id IN ?", roundIDs).Delete(&Guess{}).Error; err != nil {
				return err
			}
			if err := tx.Where("round_id IN ?", roundIDs).Delete(&RoundResult{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("game_id = ?", gameID).Delete(&Round{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", gameID).Delete(&Player{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", gameID).Delete(&Event{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Game{}, gameID).Error
	})
}
