package lf

import "go.uber.org/zap"

const (
	FieldModule       = "module"
	FieldUserID       = "user_id"
	FieldChallengeID  = "challenge_id"
	FieldSubmissionID = "submission_id"
	FieldDatasetID    = "dataset_id"
	FieldMetric       = "metric"
	FieldScore        = "score"
	FieldRank         = "rank"
	FieldFileName     = "file_name"
)

func Module(module string) zap.Field {
	return zap.String(FieldModule, module)
}

func UserID(ID uint) zap.Field {
	return zap.Uint(FieldUserID, ID)
}

func ChallengeID(ID uint) zap.Field {
	return zap.Uint(FieldChallengeID, ID)
}

func SubmissionID(ID uint) zap.Field {
	return zap.Uint(FieldSubmissionID, ID)
}

func DatasetID(ID uint) zap.Field {
	return zap.Uint(FieldDatasetID, ID)
}

func Metric(metric string) zap.Field {
	return zap.String(FieldMetric, metric)
}

func Score(score float64) zap.Field {
	return zap.Float64(FieldScore, score)
}

func Rank(rank int) zap.Field {
	return zap.Int(FieldRank, rank)
}

func FileName(name string) zap.Field {
	return zap.String(FieldFileName, name)
}
