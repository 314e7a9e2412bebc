package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dsarena/dsarena/internal/catalog"
	"github.com/dsarena/dsarena/internal/config"
	"github.com/dsarena/dsarena/internal/database"
	lf "github.com/dsarena/dsarena/internal/logfield"
	"github.com/dsarena/dsarena/internal/models"
)

func makeSeedCommand() *cobra.Command {
	var catalogPath, dataDir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create challenges and datasets from a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(catalogPath, dataDir)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "challenges.yml", "Path to the challenge catalog")
	cmd.Flags().StringVar(&dataDir, "data", "data", "Directory holding the dataset files")

	return cmd
}

func seed(catalogPath, dataDir string) error {
	conf, err := config.ParseConfig()
	if err != nil {
		return err
	}

	challenges, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	db, err := database.OpenDataBase(log, conf.DSN())
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range challenges {
		entry := &challenges[i]
		challenge, err := db.AddChallenge(&models.Challenge{
			Title:            entry.Title,
			Description:      entry.Description,
			Metric:           entry.Metric,
			Status:           entry.CurrentStatus(now),
			DailySubmitLimit: entry.DailySubmitLimit,
			StartAt:          entry.Start.Time,
			EndAt:            entry.End.Time,
		})
		if err != nil {
			return err
		}

		existing, err := db.ListDatasets(challenge.ID)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(existing))
		for _, dataset := range existing {
			known[dataset.FileName] = true
		}

		for _, dataset := range entry.Datasets {
			if known[dataset.File] {
				continue
			}
			err := db.AddDataset(&models.Dataset{
				ChallengeID: challenge.ID,
				FileName:    dataset.File,
				FilePath:    filepath.Join(dataDir, dataset.File),
			})
			if err != nil {
				return err
			}
		}

		log.Info("Seeded challenge",
			lf.ChallengeID(challenge.ID),
			zap.String("title", challenge.Title),
			lf.Metric(challenge.Metric),
			zap.String("status", challenge.Status),
		)
	}

	return nil
}
