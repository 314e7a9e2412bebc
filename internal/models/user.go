package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Login     string `gorm:"uniqueIndex"`
	FirstName string
	LastName  string

	// Experience grows by a fixed amount for every valid scored submission.
	Experience int64
}

type Session struct {
	ID     uint   `gorm:"primaryKey"`
	Token  string `gorm:"uniqueIndex"`
	UserID uint
}
