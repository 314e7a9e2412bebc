package models

import (
	"gorm.io/gorm"
)

// Dataset references a file attached to a challenge. The dataset whose
// file name marks it as the answer file holds the ground truth and is
// never served to participants.
type Dataset struct {
	gorm.Model

	ChallengeID uint `gorm:"index"`

	FileName string
	FilePath string
}
