package pipeline

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	lf "github.com/dsarena/dsarena/internal/logfield"
	"github.com/dsarena/dsarena/internal/metrics"
	"github.com/dsarena/dsarena/internal/models"
	"github.com/dsarena/dsarena/internal/scorer"
)

// RewardExperience is granted for every submission that produced a valid
// score, whether or not it improved the leaderboard.
const RewardExperience = 10

// Pipeline runs one accepted submission end to end: eligibility guard,
// file persistence, scoring, leaderboard update and experience reward.
// It is safe for concurrent use; consistency over shared per-challenge
// state is provided by keyed mutexes, see Submit and updateLeaderboard.
type Pipeline struct {
	logger *zap.Logger
	store  Store
	files  FileStore
	scorer *scorer.Scorer

	// location defines the calendar-day boundary for the daily quota.
	location *time.Location

	// submitLocks serializes quota-check-then-create per (user, challenge)
	// so concurrent submissions cannot jointly exceed the daily limit.
	submitLocks keyedMutex
	// rankLocks serializes the read-sort-rewrite rank recomputation per
	// challenge so ranks stay contiguous under concurrent submitters.
	rankLocks keyedMutex

	scored   atomic.Int64
	rejected atomic.Int64
}

func New(logger *zap.Logger, store Store, files FileStore, scorer *scorer.Scorer, location *time.Location) *Pipeline {
	if location == nil {
		location = time.Local
	}
	return &Pipeline{
		logger:   logger.With(lf.Module("pipeline")),
		store:    store,
		files:    files,
		scorer:   scorer,
		location: location,
	}
}

// Submit runs the whole pipeline for one uploaded file and returns the
// persisted Submission. Eligibility failures return one of the Err*
// sentinels and create nothing; scoring failures still return a
// Submission with status error and an explanatory log. Only store and
// file-system failures propagate as errors beyond that.
func (p *Pipeline) Submit(challengeID, userID uint, fileName string, data []byte, now time.Time) (*models.Submission, error) {
	challenge, err := p.store.FindChallenge(challengeID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load challenge")
	}
	if challenge == nil {
		return nil, ErrChallengeNotFound
	}

	submission, err := p.admitAndCreate(challenge, userID, fileName, data, now)
	if err != nil {
		p.rejected.Inc()
		return nil, err
	}

	result := p.scoreSubmission(challenge, submission)

	submission.Log = result.Log
	if result.Valid() {
		submission.Status = models.SubmissionStatusCompleted
		score := result.Score
		submission.PublicScore = &score
	} else {
		submission.Status = models.SubmissionStatusError
	}
	if err := p.store.FinishSubmission(submission); err != nil {
		return nil, errors.Wrap(err, "failed to finish submission")
	}

	// A failed scoring attempt must never perturb ranks or grant
	// experience.
	if result.Valid() {
		if err := p.updateLeaderboard(challenge, userID, result.Score, now); err != nil {
			return nil, errors.Wrap(err, "failed to update leaderboard")
		}
		if err := p.store.AddExperience(userID, RewardExperience); err != nil {
			return nil, errors.Wrap(err, "failed to add experience")
		}
	}

	p.scored.Inc()
	p.logger.Info("Scored submission",
		lf.ChallengeID(challenge.ID),
		lf.UserID(userID),
		lf.SubmissionID(submission.ID),
		lf.Score(result.Score),
		zap.String("status", submission.Status),
	)
	return submission, nil
}

// admitAndCreate checks eligibility and, if admitted, stores the file and
// creates the Submission in status scoring. The quota count and the
// create happen under one per-(user, challenge) lock, so the daily limit
// is exact rather than best-effort.
func (p *Pipeline) admitAndCreate(challenge *models.Challenge, userID uint, fileName string, data []byte, now time.Time) (*models.Submission, error) {
	participant, err := p.store.FindParticipant(challenge.ID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load participant")
	}
	if participant == nil {
		return nil, ErrNotParticipant
	}

	if challenge.Status != models.ChallengeStatusActive {
		return nil, ErrChallengeNotOpen
	}

	unlock := p.submitLocks.lock(fmt.Sprintf("%d/%d", challenge.ID, userID))
	defer unlock()

	count, err := p.store.CountSubmissionsSince(challenge.ID, userID, p.startOfDay(now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to count submissions")
	}
	if count >= int64(challenge.DailySubmitLimit) {
		return nil, ErrQuotaExceeded
	}

	path, err := p.files.Save(challenge.ID, userID, fileName, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store submission file")
	}

	submission := &models.Submission{
		ChallengeID: challenge.ID,
		UserID:      userID,
		FilePath:    path,
		FileName:    fileName,
		Status:      models.SubmissionStatusScoring,
	}
	if err := p.store.CreateSubmission(submission); err != nil {
		return nil, errors.Wrap(err, "failed to create submission")
	}
	return submission, nil
}

func (p *Pipeline) scoreSubmission(challenge *models.Challenge, submission *models.Submission) scorer.Result {
	answer, err := p.store.FindAnswerDataset(challenge.ID)
	if err != nil {
		p.logger.Warn("Failed to look up answer dataset",
			lf.ChallengeID(challenge.ID), zap.Error(err))
		return scorer.Result{Score: scorer.InvalidScore, Log: "failed to look up the answer dataset"}
	}
	if answer == nil {
		return scorer.Result{Score: scorer.InvalidScore, Log: "answer dataset not found for this challenge"}
	}

	return p.scorer.Score(submission.FilePath, answer.FilePath, p.challengeMetric(challenge))
}

func (p *Pipeline) challengeMetric(challenge *models.Challenge) metrics.Metric {
	metric, known := metrics.Parse(challenge.Metric)
	if !known {
		p.logger.Warn("Unknown challenge metric, falling back to rmse",
			lf.ChallengeID(challenge.ID), lf.Metric(challenge.Metric))
	}
	return metric
}

func (p *Pipeline) startOfDay(now time.Time) time.Time {
	now = now.In(p.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.location)
}

// Stats reports how many submissions were scored and rejected since
// startup.
func (p *Pipeline) Stats() (scored, rejected int64) {
	return p.scored.Load(), p.rejected.Load()
}

// Submissions lists the user's submissions in a challenge, newest first.
func (p *Pipeline) Submissions(challengeID, userID uint) ([]models.Submission, error) {
	return p.store.ListUserSubmissions(challengeID, userID)
}

// Leaderboard lists the challenge leaderboard ordered by rank ascending.
func (p *Pipeline) Leaderboard(challengeID uint) ([]models.LeaderboardEntry, error) {
	return p.store.ListLeaderboard(challengeID)
}
