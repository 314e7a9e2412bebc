package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"moul.io/zapgorm2"

	"github.com/dsarena/dsarena/internal/models"
	"github.com/dsarena/dsarena/internal/storage"
)

type DataBase struct {
	*gorm.DB
}

type DuplicateKey struct {
	nested error
}

func (e *DuplicateKey) Error() string {
	return e.nested.Error()
}

func (e *DuplicateKey) Unwrap() error {
	return e.nested
}

func IsDuplicateKey(err error) bool {
	duplicateKey := &DuplicateKey{}
	return errors.As(err, &duplicateKey)
}

// gorm does not map unique violations to a typed error:
// https://github.com/go-gorm/gorm/issues/4037
func isUniqueViolation(err error) bool {
	perr, ok := err.(*pgconn.PgError)
	if ok {
		return perr.Code == "23505"
	}
	return false
}

func OpenDataBase(logger *zap.Logger, dsn string) (*DataBase, error) {
	zapLogger := zapgorm2.New(logger.Named("gorm"))
	zapLogger.SetAsDefault()

	var db *gorm.DB
	open := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: zapLogger,
		})
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(open, policy); err != nil {
		return nil, err
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Challenge{},
		&models.Participant{},
		&models.Dataset{},
		&models.Submission{},
		&models.LeaderboardEntry{},
	)
	if err != nil {
		return nil, err
	}

	return &DataBase{db}, nil
}

func (db *DataBase) AddUser(user *models.User) (*models.User, error) {
	var res models.User
	err := db.Where(models.User{Login: user.Login}).Attrs(user).FirstOrCreate(&res).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateKey{err}
		}
		return nil, err
	}
	return &res, nil
}

func (db *DataBase) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	err := db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DataBase) FindUserByLogin(login string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "login = ?", login).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (db *DataBase) AddExperience(userID uint, amount int64) error {
	res := db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("experience", gorm.Expr("experience + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected < 1 {
		return fmt.Errorf("unknown user %d", userID)
	}
	return nil
}

func (db *DataBase) CreateSession(user uint) (*models.Session, error) {
	session := &models.Session{
		Token:  uuid.Must(uuid.NewUUID()).String(),
		UserID: user,
	}
	res := db.Create(session)
	if res.Error != nil {
		return nil, res.Error
	}
	return session, nil
}

func (db *DataBase) FindUserBySession(token string) (*models.User, error) {
	var session models.Session
	res := db.DB.Where("token", token).Take(&session)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return db.FindUserByID(session.UserID)
}

func (db *DataBase) AddChallenge(challenge *models.Challenge) (*models.Challenge, error) {
	var res models.Challenge
	err := db.Where(models.Challenge{Title: challenge.Title}).Attrs(challenge).FirstOrCreate(&res).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateKey{err}
		}
		return nil, err
	}
	return &res, nil
}

func (db *DataBase) FindChallenge(id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	err := db.First(&challenge, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &challenge, nil
}

func (db *DataBase) ListChallenges() (challenges []models.Challenge, err error) {
	challenges = make([]models.Challenge, 0)
	err = db.Order("start_at").Find(&challenges).Error
	if err != nil {
		challenges = nil
	}
	return
}

func (db *DataBase) SetChallengeStatus(id uint, status models.ChallengeStatus) error {
	return db.Model(&models.Challenge{}).Where("id = ?", id).Update("status", status).Error
}

// AddParticipant creates the join record. Joining twice is not an error.
func (db *DataBase) AddParticipant(challengeID, userID uint) error {
	participant := &models.Participant{
		ChallengeID: challengeID,
		UserID:      userID,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "challenge_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(participant).Error
}

func (db *DataBase) FindParticipant(challengeID, userID uint) (*models.Participant, error) {
	var participant models.Participant
	err := db.First(&participant, "challenge_id = ? AND user_id = ?", challengeID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

func (db *DataBase) AddDataset(dataset *models.Dataset) error {
	return db.Create(dataset).Error
}

func (db *DataBase) FindDataset(id uint) (*models.Dataset, error) {
	var dataset models.Dataset
	err := db.First(&dataset, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dataset, nil
}

func (db *DataBase) ListDatasets(challengeID uint) (datasets []models.Dataset, err error) {
	datasets = make([]models.Dataset, 0)
	err = db.Find(&datasets, "challenge_id = ?", challengeID).Error
	if err != nil {
		datasets = nil
	}
	return
}

// FindAnswerDataset returns the challenge's ground-truth dataset, picked
// by the answer-file naming convention, or (nil, nil) when none exists.
func (db *DataBase) FindAnswerDataset(challengeID uint) (*models.Dataset, error) {
	datasets, err := db.ListDatasets(challengeID)
	if err != nil {
		return nil, err
	}
	for i := range datasets {
		if storage.IsAnswerFile(datasets[i].FileName) {
			return &datasets[i], nil
		}
	}
	return nil, nil
}

func (db *DataBase) CountSubmissionsSince(challengeID, userID uint, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.Submission{}).
		Where("challenge_id = ? AND user_id = ? AND created_at >= ?", challengeID, userID, since).
		Count(&count).Error
	return count, err
}

func (db *DataBase) CreateSubmission(submission *models.Submission) error {
	return db.Create(submission).Error
}

// FinishSubmission records the terminal scoring outcome. The status
// transition happens exactly once; the row is immutable afterwards.
func (db *DataBase) FinishSubmission(submission *models.Submission) error {
	return db.Model(submission).
		Select("status", "public_score", "log").
		Updates(map[string]interface{}{
			"status":       submission.Status,
			"public_score": submission.PublicScore,
			"log":          submission.Log,
		}).Error
}

func (db *DataBase) ListUserSubmissions(challengeID, userID uint) (submissions []models.Submission, err error) {
	submissions = make([]models.Submission, 0)
	err = db.Order("created_at DESC").
		Find(&submissions, "challenge_id = ? AND user_id = ?", challengeID, userID).
		Error
	if err != nil {
		submissions = nil
	}
	return
}

func (db *DataBase) FindLeaderboardEntry(challengeID, userID uint) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := db.First(&entry, "challenge_id = ? AND user_id = ?", challengeID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (db *DataBase) UpsertLeaderboardEntry(entry *models.LeaderboardEntry) error {
	if entry.ID != 0 {
		return db.Model(entry).
			Select("best_score", "best_at").
			Updates(map[string]interface{}{
				"best_score": entry.BestScore,
				"best_at":    entry.BestAt,
			}).Error
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "challenge_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"best_score", "best_at"}),
	}).Create(entry).Error
}

func (db *DataBase) ListLeaderboard(challengeID uint) (entries []models.LeaderboardEntry, err error) {
	entries = make([]models.LeaderboardEntry, 0)
	err = db.Order("rank").Find(&entries, "challenge_id = ?", challengeID).Error
	if err != nil {
		entries = nil
	}
	return
}

// WriteRanks rewrites the rank of every entry in one transaction, so a
// concurrent reader never observes a half-updated ranking.
func (db *DataBase) WriteRanks(entries []models.LeaderboardEntry) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			err := tx.Model(&models.LeaderboardEntry{}).
				Where("id = ?", entries[i].ID).
				Update("rank", entries[i].Rank).
				Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
