package models

import (
	"gorm.io/gorm"
)

const (
	SubmissionStatusPending   = "pending"
	SubmissionStatusScoring   = "scoring"
	SubmissionStatusCompleted = "completed"
	SubmissionStatusError     = "error"
)

type SubmissionStatus = string

// Submission is a single scoring attempt. It transitions from scoring to
// either completed or error exactly once and is immutable afterwards.
type Submission struct {
	gorm.Model

	ChallengeID uint `gorm:"index:idx_submission_quota"`
	UserID      uint `gorm:"index:idx_submission_quota"`

	FilePath string
	FileName string

	Status SubmissionStatus

	// PublicScore is nil until scoring completes and stays nil on a
	// scoring failure.
	PublicScore *float64
	Log         string
}
