package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/dsarena/dsarena/internal/models"
	"github.com/dsarena/dsarena/internal/scorer"
)

const housingAnswer = `id,price
1,355000
2,515000
3,275000
4,415000
5,675000
`

const housingSubmission = `id,price
1,350000
2,520000
3,280000
4,410000
5,680000
`

type fixture struct {
	store    *memoryStore
	pipeline *Pipeline
	now      time.Time
}

func newFixture(t *testing.T, metric string, dailyLimit int) *fixture {
	t.Helper()

	store := newMemoryStore()
	store.challenges[1] = models.Challenge{
		Model:            gorm.Model{ID: 1},
		Title:            "housing-prices",
		Metric:           metric,
		Status:           models.ChallengeStatusActive,
		DailySubmitLimit: dailyLimit,
	}

	dir := t.TempDir()
	answerPath := filepath.Join(dir, "answer.csv")
	if err := os.WriteFile(answerPath, []byte(housingAnswer), 0o644); err != nil {
		t.Fatal("Failed to write answer fixture:", err)
	}
	store.answers[1] = models.Dataset{ChallengeID: 1, FileName: "answer.csv", FilePath: answerPath}

	files := &tempFileStore{root: filepath.Join(dir, "uploads")}
	logger := zap.NewNop()
	p := New(logger, store, files, scorer.New(logger), time.UTC)

	return &fixture{
		store:    store,
		pipeline: p,
		now:      store.clock,
	}
}

func (f *fixture) submit(t *testing.T, userID uint, content string) (*models.Submission, error) {
	t.Helper()
	return f.pipeline.Submit(1, userID, "submission.csv", []byte(content), f.now)
}

func (f *fixture) mustSubmit(t *testing.T, userID uint, content string) *models.Submission {
	t.Helper()
	submission, err := f.submit(t, userID, content)
	if err != nil {
		t.Fatal("Submit failed:", err)
	}
	return submission
}

func TestSubmitEndToEnd(t *testing.T) {
	f := newFixture(t, "rmse", 5)
	f.store.join(1, 7)

	submission := f.mustSubmit(t, 7, housingSubmission)

	if submission.Status != models.SubmissionStatusCompleted {
		t.Fatalf("Invalid status: %s, log: %s", submission.Status, submission.Log)
	}
	if submission.PublicScore == nil || *submission.PublicScore != 5000 {
		t.Fatalf("Invalid public score: %v", submission.PublicScore)
	}

	entries, err := f.pipeline.Leaderboard(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].BestScore != 5000 || entries[0].Rank != 1 {
		t.Fatalf("Invalid leaderboard: %+v", entries)
	}
	if xp := f.store.experience(7); xp != RewardExperience {
		t.Fatalf("Invalid experience: %d", xp)
	}
	if scored, rejected := f.pipeline.Stats(); scored != 1 || rejected != 0 {
		t.Fatalf("Invalid stats: scored=%d rejected=%d", scored, rejected)
	}
}

func TestSubmitRejectsNonParticipant(t *testing.T) {
	f := newFixture(t, "rmse", 5)

	_, err := f.submit(t, 7, housingSubmission)
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("Expected ErrNotParticipant, got: %v", err)
	}
	if f.store.submissionCount() != 0 {
		t.Fatal("Eligibility failure must not create a submission")
	}
}

func TestSubmitRejectsClosedChallenge(t *testing.T) {
	f := newFixture(t, "rmse", 5)
	f.store.join(1, 7)
	for _, status := range []models.ChallengeStatus{models.ChallengeStatusUpcoming, models.ChallengeStatusEnded} {
		challenge := f.store.challenges[1]
		challenge.Status = status
		f.store.challenges[1] = challenge

		_, err := f.submit(t, 7, housingSubmission)
		if !errors.Is(err, ErrChallengeNotOpen) {
			t.Fatalf("Expected ErrChallengeNotOpen for status %s, got: %v", status, err)
		}
	}
	if f.store.submissionCount() != 0 {
		t.Fatal("Eligibility failure must not create a submission")
	}
}

func TestSubmitUnknownChallenge(t *testing.T) {
	f := newFixture(t, "rmse", 5)
	_, err := f.pipeline.Submit(42, 7, "submission.csv", []byte(housingSubmission), f.now)
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("Expected ErrChallengeNotFound, got: %v", err)
	}
}

func TestDailyQuota(t *testing.T) {
	f := newFixture(t, "rmse", 3)
	f.store.join(1, 7)

	for i := 0; i < 3; i++ {
		f.mustSubmit(t, 7, housingSubmission)
	}

	_, err := f.submit(t, 7, housingSubmission)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded, got: %v", err)
	}
	if f.store.submissionCount() != 3 {
		t.Fatalf("Rejected attempt must not create a submission, have %d", f.store.submissionCount())
	}
}

func TestDailyQuotaResetsAtMidnight(t *testing.T) {
	f := newFixture(t, "rmse", 1)
	f.store.join(1, 7)

	f.now = time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	f.store.clock = f.now
	f.mustSubmit(t, 7, housingSubmission)

	_, err := f.submit(t, 7, housingSubmission)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded, got: %v", err)
	}

	// One minute later it is a new calendar day.
	f.now = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	f.store.clock = f.now
	f.mustSubmit(t, 7, housingSubmission)
}

func TestScoringFailureIsRecordedNotRewarded(t *testing.T) {
	f := newFixture(t, "rmse", 5)
	f.store.join(1, 7)

	// Four rows against a five row answer.
	submission := f.mustSubmit(t, 7, "id,price\n1,1\n2,2\n3,3\n4,4\n")

	if submission.Status != models.SubmissionStatusError {
		t.Fatalf("Invalid status: %s", submission.Status)
	}
	if submission.PublicScore != nil {
		t.Fatalf("Failed scoring must not expose a score: %v", *submission.PublicScore)
	}
	if submission.Log == "" {
		t.Fatal("Failed scoring must leave an explanatory log")
	}

	entries, _ := f.pipeline.Leaderboard(1)
	if len(entries) != 0 {
		t.Fatal("Failed scoring must not touch the leaderboard")
	}
	if xp := f.store.experience(7); xp != 0 {
		t.Fatalf("Failed scoring must not grant experience, got %d", xp)
	}
}

func TestMissingAnswerDataset(t *testing.T) {
	f := newFixture(t, "rmse", 5)
	f.store.join(1, 7)
	delete(f.store.answers, 1)

	submission := f.mustSubmit(t, 7, housingSubmission)
	if submission.Status != models.SubmissionStatusError {
		t.Fatalf("Invalid status: %s", submission.Status)
	}
	if submission.Log == "" {
		t.Fatal("Missing answer must leave an explanatory log")
	}
}

func TestBestScoreImprovement(t *testing.T) {
	f := newFixture(t, "rmse", 10)
	f.store.join(1, 7)

	f.mustSubmit(t, 7, housingSubmission) // rmse 5000

	// A perfect submission improves the lower-is-better best score.
	f.mustSubmit(t, 7, housingAnswer)

	entries, _ := f.pipeline.Leaderboard(1)
	if len(entries) != 1 || entries[0].BestScore != 0 {
		t.Fatalf("Invalid leaderboard after improvement: %+v", entries)
	}

	// A worse submission must not replace the best.
	f.mustSubmit(t, 7, housingSubmission)
	entries, _ = f.pipeline.Leaderboard(1)
	if entries[0].BestScore != 0 {
		t.Fatalf("Worse score replaced the best: %+v", entries)
	}
}

func TestIdenticalScoreIsIdempotent(t *testing.T) {
	f := newFixture(t, "rmse", 10)
	f.store.join(1, 7)

	f.mustSubmit(t, 7, housingSubmission)
	writesAfterFirst := f.store.rankWrites

	f.mustSubmit(t, 7, housingSubmission)

	if f.store.rankWrites != writesAfterFirst {
		t.Fatal("Identical score must not trigger a rank write")
	}
	entries, _ := f.pipeline.Leaderboard(1)
	if len(entries) != 1 || entries[0].BestScore != 5000 {
		t.Fatalf("Identical score changed the entry: %+v", entries)
	}
}

func TestRanksAreContiguousAndOrdered(t *testing.T) {
	f := newFixture(t, "rmse", 10)

	// User 2 submits the perfect answer, user 1 an imperfect one,
	// user 3 a worse one.
	submissions := []struct {
		userID  uint
		content string
	}{
		{1, housingSubmission},
		{2, housingAnswer},
		{3, "id,price\n1,300000\n2,600000\n3,200000\n4,500000\n5,700000\n"},
	}
	for _, s := range submissions {
		f.store.join(1, s.userID)
		f.mustSubmit(t, s.userID, s.content)
	}

	entries, err := f.pipeline.Leaderboard(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	byRank := make(map[int]models.LeaderboardEntry)
	for _, entry := range entries {
		byRank[entry.Rank] = entry
	}
	for rank := 1; rank <= len(entries); rank++ {
		if _, found := byRank[rank]; !found {
			t.Fatalf("Ranks are not contiguous: %+v", entries)
		}
	}
	if byRank[1].UserID != 2 {
		t.Fatalf("Perfect submission must rank first: %+v", entries)
	}
	for rank := 1; rank < len(entries); rank++ {
		if byRank[rank].BestScore > byRank[rank+1].BestScore {
			t.Fatalf("Lower-is-better order violated: %+v", entries)
		}
	}
}

func TestHigherIsBetterRanking(t *testing.T) {
	f := newFixture(t, "accuracy", 10)
	answerPath := f.store.answers[1].FilePath
	if err := os.WriteFile(answerPath, []byte("id,label\n1,1\n2,0\n3,1\n4,0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f.store.join(1, 1)
	f.store.join(1, 2)
	f.mustSubmit(t, 1, "id,label\n1,1\n2,0\n3,0\n4,0\n") // accuracy 0.75
	f.mustSubmit(t, 2, "id,label\n1,1\n2,0\n3,1\n4,0\n") // accuracy 1.0

	entries, _ := f.pipeline.Leaderboard(1)
	byRank := make(map[int]models.LeaderboardEntry)
	for _, entry := range entries {
		byRank[entry.Rank] = entry
	}
	if byRank[1].UserID != 2 || byRank[1].BestScore != 1 {
		t.Fatalf("Higher accuracy must rank first: %+v", entries)
	}
}

func TestUnknownMetricFallsBackToRMSERanking(t *testing.T) {
	f := newFixture(t, "logloss", 10)
	f.store.join(1, 1)
	f.store.join(1, 2)

	f.mustSubmit(t, 1, housingSubmission) // rmse 5000
	f.mustSubmit(t, 2, housingAnswer)     // rmse 0

	entries, _ := f.pipeline.Leaderboard(1)
	byRank := make(map[int]models.LeaderboardEntry)
	for _, entry := range entries {
		byRank[entry.Rank] = entry
	}
	// Unknown metrics score and rank as rmse: lower is better.
	if byRank[1].UserID != 2 || byRank[1].BestScore != 0 {
		t.Fatalf("Unknown metric must rank lower-is-better: %+v", entries)
	}
}

func TestEqualScoresTieBreakByEarliestAchiever(t *testing.T) {
	f := newFixture(t, "rmse", 10)
	f.store.join(1, 1)
	f.store.join(1, 2)

	f.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f.store.clock = f.now
	f.mustSubmit(t, 2, housingSubmission)

	f.now = time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	f.store.clock = f.now
	f.mustSubmit(t, 1, housingSubmission)

	entries, _ := f.pipeline.Leaderboard(1)
	byRank := make(map[int]models.LeaderboardEntry)
	for _, entry := range entries {
		byRank[entry.Rank] = entry
	}
	if byRank[1].UserID != 2 || byRank[2].UserID != 1 {
		t.Fatalf("Earlier achiever must keep the better rank: %+v", entries)
	}
}

func TestConcurrentSubmissionsKeepRanksConsistent(t *testing.T) {
	const users = 16

	f := newFixture(t, "rmse", 10)
	for userID := uint(1); userID <= users; userID++ {
		f.store.join(1, userID)
	}

	var g errgroup.Group
	for userID := uint(1); userID <= users; userID++ {
		userID := userID
		g.Go(func() error {
			// Every user submits a distinct prediction.
			content := fmt.Sprintf("id,price\n1,%d\n2,515000\n3,275000\n4,415000\n5,675000\n", 355000+int(userID)*100)
			_, err := f.pipeline.Submit(1, userID, "submission.csv", []byte(content), f.now)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal("Concurrent submit failed:", err)
	}

	entries, err := f.pipeline.Leaderboard(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != users {
		t.Fatalf("Expected %d entries, got %d", users, len(entries))
	}

	byRank := make(map[int]models.LeaderboardEntry)
	for _, entry := range entries {
		if _, duplicate := byRank[entry.Rank]; duplicate {
			t.Fatalf("Duplicate rank %d: %+v", entry.Rank, entries)
		}
		byRank[entry.Rank] = entry
	}
	for rank := 1; rank <= users; rank++ {
		if _, found := byRank[rank]; !found {
			t.Fatalf("Ranks are not contiguous under concurrency: %+v", entries)
		}
		if rank > 1 && byRank[rank-1].BestScore > byRank[rank].BestScore {
			t.Fatalf("Rank order violated under concurrency: %+v", entries)
		}
	}
}

func TestConcurrentSubmissionsRespectQuota(t *testing.T) {
	const limit = 3
	const attempts = 12

	f := newFixture(t, "rmse", limit)
	f.store.join(1, 7)

	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.pipeline.Submit(1, 7, "submission.csv", []byte(housingSubmission), f.now)
			if err != nil && !errors.Is(err, ErrQuotaExceeded) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal("Concurrent submit failed:", err)
	}

	if count := f.store.submissionCount(); count != limit {
		t.Fatalf("Quota overshoot: %d submissions created, limit is %d", count, limit)
	}
}
