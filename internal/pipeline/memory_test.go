package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dsarena/dsarena/internal/models"
)

// memoryStore is an in-memory Store used by the pipeline tests.
// CreatedAt on new submissions is stamped from the clock field so quota
// window tests can control time.
type memoryStore struct {
	mu sync.Mutex

	clock time.Time

	challenges   map[uint]models.Challenge
	answers      map[uint]models.Dataset
	participants map[[2]uint]bool
	users        map[uint]models.User
	submissions  []models.Submission
	entries      []models.LeaderboardEntry

	nextSubmissionID uint
	nextEntryID      uint

	rankWrites int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		clock:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		challenges:       make(map[uint]models.Challenge),
		answers:          make(map[uint]models.Dataset),
		participants:     make(map[[2]uint]bool),
		users:            make(map[uint]models.User),
		nextSubmissionID: 1,
		nextEntryID:      1,
	}
}

func (m *memoryStore) FindChallenge(id uint) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	challenge, found := m.challenges[id]
	if !found {
		return nil, nil
	}
	return &challenge, nil
}

func (m *memoryStore) FindParticipant(challengeID, userID uint) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.participants[[2]uint{challengeID, userID}] {
		return nil, nil
	}
	return &models.Participant{ChallengeID: challengeID, UserID: userID}, nil
}

func (m *memoryStore) join(challengeID, userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[[2]uint{challengeID, userID}] = true
}

func (m *memoryStore) FindAnswerDataset(challengeID uint) (*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dataset, found := m.answers[challengeID]
	if !found {
		return nil, nil
	}
	return &dataset, nil
}

func (m *memoryStore) CountSubmissionsSince(challengeID, userID uint, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, submission := range m.submissions {
		if submission.ChallengeID == challengeID && submission.UserID == userID && !submission.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) CreateSubmission(submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission.ID = m.nextSubmissionID
	m.nextSubmissionID++
	submission.CreatedAt = m.clock
	m.submissions = append(m.submissions, *submission)
	return nil
}

func (m *memoryStore) FinishSubmission(submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.submissions {
		if m.submissions[i].ID == submission.ID {
			m.submissions[i] = *submission
			return nil
		}
	}
	return fmt.Errorf("unknown submission %d", submission.ID)
}

func (m *memoryStore) ListUserSubmissions(challengeID, userID uint) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	submissions := make([]models.Submission, 0)
	for i := len(m.submissions) - 1; i >= 0; i-- {
		if m.submissions[i].ChallengeID == challengeID && m.submissions[i].UserID == userID {
			submissions = append(submissions, m.submissions[i])
		}
	}
	return submissions, nil
}

func (m *memoryStore) FindLeaderboardEntry(challengeID, userID uint) (*models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		if entry.ChallengeID == challengeID && entry.UserID == userID {
			found := entry
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) UpsertLeaderboardEntry(entry *models.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ChallengeID == entry.ChallengeID && m.entries[i].UserID == entry.UserID {
			entry.ID = m.entries[i].ID
			m.entries[i] = *entry
			return nil
		}
	}
	entry.ID = m.nextEntryID
	m.nextEntryID++
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryStore) ListLeaderboard(challengeID uint) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]models.LeaderboardEntry, 0)
	for _, entry := range m.entries {
		if entry.ChallengeID == challengeID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (m *memoryStore) WriteRanks(entries []models.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rankWrites++
	for _, update := range entries {
		for i := range m.entries {
			if m.entries[i].ID == update.ID {
				m.entries[i].Rank = update.Rank
			}
		}
	}
	return nil
}

func (m *memoryStore) AddExperience(userID uint, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.users[userID]
	user.Experience += amount
	m.users[userID] = user
	return nil
}

func (m *memoryStore) experience(userID uint) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID].Experience
}

func (m *memoryStore) submissionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submissions)
}

// tempFileStore writes submission files under a test temp dir.
type tempFileStore struct {
	root string
	mu   sync.Mutex
	seq  int
}

func (f *tempFileStore) Save(challengeID, userID uint, fileName string, data []byte) (string, error) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	dir := filepath.Join(f.root, fmt.Sprint(challengeID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%d_%s", userID, seq, fileName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
