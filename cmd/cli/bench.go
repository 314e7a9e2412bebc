package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dsarena/dsarena/pkg/client/dsarena"
)

func makeBenchCommand() *cobra.Command {
	var endpoint, file string
	var challenge uint
	var users int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Submit the same file from many users at once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bench(endpoint, file, challenge, users)
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "http://localhost:8080", "Server endpoint")
	cmd.Flags().StringVar(&file, "file", "submission.csv", "File to submit")
	cmd.Flags().UintVar(&challenge, "challenge", 1, "Challenge id")
	cmd.Flags().IntVar(&users, "users", 8, "Number of concurrent users")

	return cmd
}

// bench hammers the submission pipeline with concurrent users; useful to
// eyeball that ranks stay contiguous under load.
func bench(endpoint, file string, challenge uint, users int) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	var g errgroup.Group
	for i := 0; i < users; i++ {
		login := fmt.Sprintf("bench-%03d", i)
		g.Go(func() error {
			client, err := dsarena.NewClient(endpoint)
			if err != nil {
				return err
			}
			if err := client.Login(login); err != nil {
				return err
			}
			if err := client.JoinChallenge(challenge); err != nil {
				return err
			}
			submission, err := client.Submit(challenge, "bench.csv", data)
			if err != nil {
				return err
			}
			log.Info("Submitted",
				zap.String("login", login),
				zap.String("status", submission.Status),
			)
			return nil
		})
	}
	return g.Wait()
}
