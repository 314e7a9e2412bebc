package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ChallengeStatusUpcoming = "upcoming"
	ChallengeStatusActive   = "active"
	ChallengeStatusEnded    = "ended"
)

type ChallengeStatus = string

type Challenge struct {
	gorm.Model

	Title       string `gorm:"uniqueIndex"`
	Description string

	// Metric is stored by name; unknown names are scored as rmse.
	Metric string
	Status ChallengeStatus `gorm:"index"`

	DailySubmitLimit int

	StartAt time.Time
	EndAt   time.Time
}
