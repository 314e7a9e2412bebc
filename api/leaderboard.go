package api

import "time"

type LeaderboardRow struct {
	Rank      int       `json:"rank"`
	UserID    uint      `json:"userId"`
	Login     string    `json:"login"`
	BestScore float64   `json:"bestScore"`
	BestAt    time.Time `json:"bestAt"`
}

type LeaderboardResponse struct {
	Status

	Entries []LeaderboardRow `json:"entries,omitempty"`
}
