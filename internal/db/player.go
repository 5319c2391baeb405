package db

import (
	"time"

	"gorm.io/gorm"
)

type Player struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_players_game_user"`
	UserID    uint      `gorm:"index;not null;uniqueIndex:idx_players_game_user"`
	Username  string    `gorm:"size:64;not null"`
	Score     int       `gorm:"not null;default:0"`
	IsHost    bool      `gorm:"not null;default:false"`
	IsActive  bool      `gorm:"not null;default:true"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Guesses   []Guess
	Events    []Event
}

// PlayersByGame returns a game's players in join order.
func PlayersByGame(conn *gorm.DB, gameID uint) ([]Player, error) {
	var records []Player
	if err := conn.Where("game_id = ?", gameID).Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// UpdatePlayerScore overwrites a player's cumulative score.
func UpdatePlayerScore(conn *gorm.DB, playerID uint, score int) error {
	return conn.Model(&Player{}).Where("id = ?", playerID).Update("score", score).Error
}

// UpdatePlayerActive flips a player's active flag.
func UpdatePlayerActive(conn *gorm.DB, playerID uint, active bool) error {
	return conn.Model(&Player{}).Where("id = ?", playerID).Update("is_active", active).Error
}
