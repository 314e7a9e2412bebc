package config

import (
	"fmt"

	"github.com/dsarena/dsarena/pkg/conf"
	"github.com/pkg/errors"
)

type Config struct {
	Server struct {
		ListenAddress string
		Cookies       struct {
			AuthenticationKey string
			EncryptionKey     string
		}
	}

	DataBase struct {
		Host string
		Port uint16
		User string
		Pass string
		Name string
	}

	Storage struct {
		UploadDir     string
		MaxUploadSize string
	}

	Scoring struct {
		// Timezone defines the calendar-day boundary for daily
		// submission quotas. Empty means the server's local zone.
		Timezone string
	}

	Log struct {
		// File enables rotated file output in addition to stderr.
		File string
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.DataBase.Host, c.DataBase.Port, c.DataBase.User, c.DataBase.Pass, c.DataBase.Name)
}

func ParseConfig() (*Config, error) {
	config := &Config{}
	if err := conf.ParseConfig(config, conf.EnvPrefix("DSA")); err != nil {
		return nil, errors.Wrap(err, "Failed to parse config")
	}
	return config, nil
}
