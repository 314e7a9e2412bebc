// Package catalog loads challenge definitions from a YAML file. The
// catalog is the admin-side source for seeding challenges and their
// datasets; runtime state (submissions, leaderboards) lives only in the
// database.
package catalog

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/dsarena/dsarena/internal/models"
)

type Date struct {
	time.Time
}

func (t *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var buf string
	err := unmarshal(&buf)
	if err != nil {
		return nil
	}

	tt, err := time.Parse("02-01-2006 15:04", strings.TrimSpace(buf))
	if err != nil {
		return err
	}
	t.Time = tt
	return nil
}

func (t Date) MarshalYAML() (interface{}, error) {
	return t.Time.Format("02-01-2006 15:04"), nil
}

type Dataset struct {
	File string
}

type Challenge struct {
	Title       string
	Description string
	Metric      string
	Start       Date
	End         Date

	DailySubmitLimit int `yaml:"dailySubmitLimit"`

	Datasets []Dataset
}

type Catalog = []Challenge

func Parse(body []byte) (Catalog, error) {
	catalog := Catalog{}
	if err := yaml.Unmarshal(body, &catalog); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal challenge catalog")
	}
	for i := range catalog {
		if catalog[i].DailySubmitLimit <= 0 {
			return nil, errors.Errorf("challenge %q: dailySubmitLimit must be positive", catalog[i].Title)
		}
	}
	return catalog, nil
}

func Load(path string) (Catalog, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read challenge catalog")
	}
	return Parse(body)
}

// CurrentStatus derives the challenge status from its [start, end)
// window.
func (c *Challenge) CurrentStatus(now time.Time) models.ChallengeStatus {
	switch {
	case now.Before(c.Start.Time):
		return models.ChallengeStatusUpcoming
	case now.Before(c.End.Time):
		return models.ChallengeStatusActive
	default:
		return models.ChallengeStatusEnded
	}
}
