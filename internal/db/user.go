package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"size:64;not null;uniqueIndex:idx_users_username"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Players   []Player
}

// UserByUsername looks a user up case-insensitively.
func UserByUsername(conn *gorm.DB, username string) (*User, error) {
	var record User
	if err := conn.Where("lower(username) = ?", strings.ToLower(username)).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// EnsureUser returns the user for a username, creating it when absent.
func EnsureUser(conn *gorm.DB, username string) (*User, error) {
	if record, err := UserByUsername(conn, username); err == nil {
		return record, nil
	}
	record := User{Username: username}
	if err := conn.Create(&record).Error; err != nil {
		if existing, lookupErr := UserByUsername(conn, username); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return &record, nil
}
