package api

type DatasetInfo struct {
	ID       uint   `json:"id"`
	FileName string `json:"fileName"`
	Answer   bool   `json:"answer"`
}

type DatasetsResponse struct {
	Status

	Datasets []DatasetInfo `json:"datasets,omitempty"`
}

type ChallengeInfo struct {
	ID               uint   `json:"id"`
	Title            string `json:"title"`
	Metric           string `json:"metric"`
	Status           string `json:"status"`
	DailySubmitLimit int    `json:"dailySubmitLimit"`
}

type ChallengesResponse struct {
	Status

	Challenges []ChallengeInfo `json:"challenges,omitempty"`
}
