package models

import (
	"time"

	"gorm.io/gorm"
)

// LeaderboardEntry holds a user's best score in a challenge. At most one
// entry exists per (challenge, user); ranks are contiguous 1..N within a
// challenge and are rewritten for the whole challenge whenever any best
// score changes.
type LeaderboardEntry struct {
	gorm.Model

	ChallengeID uint `gorm:"uniqueIndex:idx_leaderboard"`
	UserID      uint `gorm:"uniqueIndex:idx_leaderboard"`

	BestScore float64
	Rank      int

	// BestAt records when the current best score was achieved and breaks
	// ties: the earlier achiever keeps the better rank.
	BestAt time.Time
}
