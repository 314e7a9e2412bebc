package web

import (
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dsarena/dsarena/internal/config"
	"github.com/dsarena/dsarena/internal/database"
	"github.com/dsarena/dsarena/internal/pipeline"
	"github.com/dsarena/dsarena/internal/storage"
)

type server struct {
	config *config.Config
	logger *zap.Logger

	db       *database.DataBase
	storage  *storage.Storage
	pipeline *pipeline.Pipeline
}

func newServer(
	config *config.Config,
	logger *zap.Logger,
	db *database.DataBase,
	storage *storage.Storage,
	pipeline *pipeline.Pipeline,
) *server {
	return &server{
		config:   config,
		logger:   logger,
		db:       db,
		storage:  storage,
		pipeline: pipeline,
	}
}

func (s *server) run() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))

	if err := setupAuth(s, r); err != nil {
		return err
	}
	setupApiService(s, r)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong "+fmt.Sprint(time.Now().Unix()))
	})

	s.logger.Info("Starting server", zap.String("bind_address", s.config.Server.ListenAddress))
	return r.Run(s.config.Server.ListenAddress)
}
