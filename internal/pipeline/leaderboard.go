package pipeline

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	lf "github.com/dsarena/dsarena/internal/logfield"
	"github.com/dsarena/dsarena/internal/models"
)

// updateLeaderboard applies the improvement test and, when the best score
// changed, rewrites ranks for the whole challenge. The read-sort-write
// sequence runs under a per-challenge lock so concurrent submitters to the
// same challenge are linearized; other challenges are unaffected.
//
// Equal scores never update an existing entry, so re-submitting an
// identical score is a no-op. Tie-break is deterministic: equal best
// scores rank by the time the score was achieved (earlier wins), then by
// user id for a total order.
func (p *Pipeline) updateLeaderboard(challenge *models.Challenge, userID uint, score float64, now time.Time) error {
	metric := p.challengeMetric(challenge)

	unlock := p.rankLocks.lock(fmt.Sprint(challenge.ID))
	defer unlock()

	entry, err := p.store.FindLeaderboardEntry(challenge.ID, userID)
	if err != nil {
		return errors.Wrap(err, "failed to load leaderboard entry")
	}
	if entry != nil && !metric.Better(score, entry.BestScore) {
		return nil
	}

	if entry == nil {
		entry = &models.LeaderboardEntry{
			ChallengeID: challenge.ID,
			UserID:      userID,
		}
	}
	entry.BestScore = score
	entry.BestAt = now
	if err := p.store.UpsertLeaderboardEntry(entry); err != nil {
		return errors.Wrap(err, "failed to upsert leaderboard entry")
	}

	entries, err := p.store.ListLeaderboard(challenge.ID)
	if err != nil {
		return errors.Wrap(err, "failed to list leaderboard")
	}

	slices.SortStableFunc(entries, func(a, b models.LeaderboardEntry) bool {
		if a.BestScore != b.BestScore {
			return metric.Better(a.BestScore, b.BestScore)
		}
		if !a.BestAt.Equal(b.BestAt) {
			return a.BestAt.Before(b.BestAt)
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if err := p.store.WriteRanks(entries); err != nil {
		return errors.Wrap(err, "failed to write ranks")
	}

	p.logger.Info("Updated leaderboard",
		lf.ChallengeID(challenge.ID),
		lf.UserID(userID),
		lf.Score(score),
		lf.Rank(rankOf(entries, userID)),
	)
	return nil
}

func rankOf(entries []models.LeaderboardEntry, userID uint) int {
	for _, entry := range entries {
		if entry.UserID == userID {
			return entry.Rank
		}
	}
	return 0
}
