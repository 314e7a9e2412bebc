package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsarena/dsarena/pkg/client/dsarena"
)

func makeDumpLeaderboardCommand() *cobra.Command {
	var endpoint, login string
	var challenge uint
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Dump a challenge leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpLeaderboard(endpoint, login, challenge)
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "http://localhost:8080", "Server endpoint")
	cmd.Flags().StringVar(&login, "login", "admin", "Login name")
	cmd.Flags().UintVar(&challenge, "challenge", 1, "Challenge id")

	return cmd
}

func dumpLeaderboard(endpoint, login string, challenge uint) error {
	client, err := dsarena.NewClient(endpoint)
	if err != nil {
		return err
	}
	if err := client.Login(login); err != nil {
		return err
	}

	entries, err := client.LoadLeaderboard(challenge)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fmt.Printf("%4d\t%s\t%.5f\n", entry.Rank, entry.Login, entry.BestScore)
	}
	return nil
}

func makeDumpSubmissionsCommand() *cobra.Command {
	var endpoint, login string
	var challenge uint
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "Dump your submissions in a challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpSubmissions(endpoint, login, challenge)
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "http://localhost:8080", "Server endpoint")
	cmd.Flags().StringVar(&login, "login", "admin", "Login name")
	cmd.Flags().UintVar(&challenge, "challenge", 1, "Challenge id")

	return cmd
}

func dumpSubmissions(endpoint, login string, challenge uint) error {
	client, err := dsarena.NewClient(endpoint)
	if err != nil {
		return err
	}
	if err := client.Login(login); err != nil {
		return err
	}

	submissions, err := client.LoadSubmissions(challenge)
	if err != nil {
		return err
	}

	for _, submission := range submissions {
		score := "-"
		if submission.Score != nil {
			score = fmt.Sprintf("%.5f", *submission.Score)
		}
		fmt.Printf("%s\t%-9s\t%s\t%s\n",
			submission.CreatedAt.Format("2006-01-02 15:04:05"),
			submission.Status, score, submission.Log)
	}
	return nil
}
