package api

import "time"

type SubmissionInfo struct {
	ID        uint      `json:"id"`
	Status    string    `json:"status"`
	Score     *float64  `json:"score,omitempty"`
	Log       string    `json:"log"`
	FileName  string    `json:"fileName"`
	CreatedAt time.Time `json:"createdAt"`
}

type SubmitResponse struct {
	Status

	Submission *SubmissionInfo `json:"submission,omitempty"`
}

type SubmissionsResponse struct {
	Status

	Submissions []SubmissionInfo `json:"submissions,omitempty"`
}
