package pipeline

import (
	"time"

	"github.com/dsarena/dsarena/internal/models"
)

// Store is the persistence surface the pipeline needs. The postgres
// implementation lives in internal/database; tests use an in-memory fake.
// Lookup methods return (nil, nil) when the record does not exist;
// a non-nil error always means the store itself failed.
type Store interface {
	FindChallenge(id uint) (*models.Challenge, error)
	FindParticipant(challengeID, userID uint) (*models.Participant, error)
	FindAnswerDataset(challengeID uint) (*models.Dataset, error)

	CountSubmissionsSince(challengeID, userID uint, since time.Time) (int64, error)
	CreateSubmission(submission *models.Submission) error
	FinishSubmission(submission *models.Submission) error
	ListUserSubmissions(challengeID, userID uint) ([]models.Submission, error)

	FindLeaderboardEntry(challengeID, userID uint) (*models.LeaderboardEntry, error)
	UpsertLeaderboardEntry(entry *models.LeaderboardEntry) error
	ListLeaderboard(challengeID uint) ([]models.LeaderboardEntry, error)
	WriteRanks(entries []models.LeaderboardEntry) error

	AddExperience(userID uint, amount int64) error
}

// FileStore persists uploaded submission files and reports the stored path.
type FileStore interface {
	Save(challengeID, userID uint, fileName string, data []byte) (string, error)
}
