package web

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsarena/dsarena/api"
	lf "github.com/dsarena/dsarena/internal/logfield"
	"github.com/dsarena/dsarena/internal/models"
	"github.com/dsarena/dsarena/internal/pipeline"
	"github.com/dsarena/dsarena/internal/storage"
)

var timeNow = time.Now

type apiService struct {
	server *server
	log    *zap.Logger
}

func setupApiService(server *server, r *gin.Engine) {
	s := apiService{server, server.logger}

	authorized := r.Group("/api", server.validateSession)
	authorized.GET("/challenges", s.listChallenges)
	authorized.POST("/challenges/:id/join", s.join)
	authorized.POST("/challenges/:id/submissions", s.submit)
	authorized.GET("/challenges/:id/submissions", s.listSubmissions)
	authorized.GET("/challenges/:id/leaderboard", s.leaderboard)
	authorized.GET("/challenges/:id/datasets", s.listDatasets)
	authorized.GET("/datasets/:id/download", s.downloadDataset)
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, &api.Status{Error: "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (s apiService) listChallenges(c *gin.Context) {
	challenges, err := s.server.db.ListChallenges()
	if err != nil {
		s.fail(c, err)
		return
	}

	res := &api.ChallengesResponse{Status: api.Status{Ok: true}}
	for _, challenge := range challenges {
		res.Challenges = append(res.Challenges, api.ChallengeInfo{
			ID:               challenge.ID,
			Title:            challenge.Title,
			Metric:           challenge.Metric,
			Status:           challenge.Status,
			DailySubmitLimit: challenge.DailySubmitLimit,
		})
	}
	c.JSON(http.StatusOK, res)
}

func (s apiService) join(c *gin.Context) {
	challengeID, ok := pathID(c)
	if !ok {
		return
	}
	userID := sessionUser(c)

	challenge, err := s.server.db.FindChallenge(challengeID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if challenge == nil {
		c.JSON(http.StatusNotFound, &api.JoinResponse{Status: api.Status{Error: "challenge not found"}})
		return
	}

	if err := s.server.db.AddParticipant(challengeID, userID); err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("User joined challenge", lf.ChallengeID(challengeID), lf.UserID(userID))
	c.JSON(http.StatusOK, &api.JoinResponse{Status: api.Status{Ok: true}})
}

func (s apiService) submit(c *gin.Context) {
	challengeID, ok := pathID(c)
	if !ok {
		return
	}
	userID := sessionUser(c)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, &api.SubmitResponse{Status: api.Status{Error: "file is required"}})
		return
	}
	file, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(c, err)
		return
	}

	submission, err := s.server.pipeline.Submit(challengeID, userID, header.Filename, data, timeNow())
	if err != nil {
		s.failSubmit(c, err)
		return
	}

	info := submissionInfo(submission)
	c.JSON(http.StatusOK, &api.SubmitResponse{
		Status:     api.Status{Ok: true},
		Submission: &info,
	})
}

// failSubmit maps pipeline eligibility errors onto user-facing rejections;
// everything else is an internal failure.
func (s apiService) failSubmit(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, pipeline.ErrChallengeNotFound):
		code = http.StatusNotFound
	case errors.Is(err, pipeline.ErrNotParticipant):
		code = http.StatusForbidden
	case errors.Is(err, pipeline.ErrChallengeNotOpen):
		code = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrQuotaExceeded):
		code = http.StatusTooManyRequests
	case errors.Is(err, storage.ErrFileTooLarge):
		code = http.StatusRequestEntityTooLarge
	default:
		s.fail(c, err)
		return
	}
	c.JSON(code, &api.SubmitResponse{Status: api.Status{Error: err.Error()}})
}

func (s apiService) listSubmissions(c *gin.Context) {
	challengeID, ok := pathID(c)
	if !ok {
		return
	}

	submissions, err := s.server.pipeline.Submissions(challengeID, sessionUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	res := &api.SubmissionsResponse{Status: api.Status{Ok: true}}
	for i := range submissions {
		res.Submissions = append(res.Submissions, submissionInfo(&submissions[i]))
	}
	c.JSON(http.StatusOK, res)
}

func (s apiService) leaderboard(c *gin.Context) {
	challengeID, ok := pathID(c)
	if !ok {
		return
	}

	entries, err := s.server.pipeline.Leaderboard(challengeID)
	if err != nil {
		s.fail(c, err)
		return
	}

	res := &api.LeaderboardResponse{Status: api.Status{Ok: true}}
	for _, entry := range entries {
		row := api.LeaderboardRow{
			Rank:      entry.Rank,
			UserID:    entry.UserID,
			BestScore: entry.BestScore,
			BestAt:    entry.BestAt,
		}
		if user, err := s.server.db.FindUserByID(entry.UserID); err == nil {
			row.Login = user.Login
		}
		res.Entries = append(res.Entries, row)
	}
	c.JSON(http.StatusOK, res)
}

func (s apiService) listDatasets(c *gin.Context) {
	challengeID, ok := pathID(c)
	if !ok {
		return
	}

	datasets, err := s.server.db.ListDatasets(challengeID)
	if err != nil {
		s.fail(c, err)
		return
	}

	res := &api.DatasetsResponse{Status: api.Status{Ok: true}}
	for _, dataset := range datasets {
		res.Datasets = append(res.Datasets, api.DatasetInfo{
			ID:       dataset.ID,
			FileName: dataset.FileName,
			Answer:   storage.IsAnswerFile(dataset.FileName),
		})
	}
	c.JSON(http.StatusOK, res)
}

func (s apiService) downloadDataset(c *gin.Context) {
	datasetID, ok := pathID(c)
	if !ok {
		return
	}

	dataset, err := s.server.db.FindDataset(datasetID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if dataset == nil {
		c.JSON(http.StatusNotFound, &api.Status{Error: "dataset not found"})
		return
	}

	// The ground-truth file is never served through this surface,
	// regardless of who asks. Admins have the file on disk.
	if storage.IsAnswerFile(dataset.FileName) {
		s.log.Warn("Refused answer dataset download",
			lf.DatasetID(dataset.ID), lf.UserID(sessionUser(c)))
		c.JSON(http.StatusForbidden, &api.Status{Error: "dataset is not downloadable"})
		return
	}

	c.FileAttachment(dataset.FilePath, dataset.FileName)
}

func (s apiService) fail(c *gin.Context, err error) {
	s.log.Error("Request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, &api.Status{Error: "internal error"})
}

func submissionInfo(submission *models.Submission) api.SubmissionInfo {
	return api.SubmissionInfo{
		ID:        submission.ID,
		Status:    submission.Status,
		Score:     submission.PublicScore,
		Log:       submission.Log,
		FileName:  submission.FileName,
		CreatedAt: submission.CreatedAt,
	}
}
