package config

import "time"

// SearchConfig holds search-backend connection configuration.
type SearchConfig struct {
	URL   string
	Token string
	Retry RetryConfig
}

// RetryConfig holds retry configuration for backend requests.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func loadSearchConfig() SearchConfig {
	return SearchConfig{
		URL:   getEnv("SEARCH_URL", ""),
		Token: getEnv("SEARCH_TOKEN", ""),
		Retry: RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     time.Minute,
		},
	}
}
