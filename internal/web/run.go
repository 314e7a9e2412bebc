package web

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsarena/dsarena/internal/config"
	"github.com/dsarena/dsarena/internal/database"
	"github.com/dsarena/dsarena/internal/pipeline"
	"github.com/dsarena/dsarena/internal/scorer"
	"github.com/dsarena/dsarena/internal/storage"
)

func Run(logger *zap.Logger) error {
	conf, err := config.ParseConfig()
	if err != nil {
		return err
	}

	db, err := database.OpenDataBase(logger, conf.DSN())
	if err != nil {
		return errors.Wrap(err, "Failed to open database")
	}

	files, err := storage.New(conf.Storage.UploadDir, conf.Storage.MaxUploadSize)
	if err != nil {
		return errors.Wrap(err, "Failed to init upload storage")
	}

	location := time.Local
	if conf.Scoring.Timezone != "" {
		location, err = time.LoadLocation(conf.Scoring.Timezone)
		if err != nil {
			return errors.Wrap(err, "Failed to load scoring timezone")
		}
	}

	p := pipeline.New(logger, db, files, scorer.New(logger), location)

	s := newServer(conf, logger, db, files, p)
	return errors.Wrap(s.run(), "Server failed")
}
