package config

import (
	"os"
)

type Config struct {
	Port               string
	DBConnectionString string
	Search             SearchConfig
	Indices            IndexConfig
}

// IndexConfig names the backend indices holding each document kind.
type IndexConfig struct {
	Git          string
	Repo         string
	Contributors string
	PR           string
}

func Load() (*Config, error) {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBConnectionString: getEnv("DB_CONNECTION_STRING", ""),
		Search:             loadSearchConfig(),
		Indices: IndexConfig{
			Git:          getEnv("GIT_INDEX", "gitlog"),
			Repo:         getEnv("REPO_INDEX", "repo"),
			Contributors: getEnv("CONTRIBUTORS_INDEX", "contributors"),
			PR:           getEnv("PR_INDEX", "pull_requests"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
