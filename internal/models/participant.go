package models

import (
	"gorm.io/gorm"
)

// Participant is the (challenge, user) join record. Created once when the
// user joins a challenge, never mutated afterwards.
type Participant struct {
	gorm.Model

	ChallengeID uint `gorm:"uniqueIndex:idx_participant"`
	UserID      uint `gorm:"uniqueIndex:idx_participant"`
}
