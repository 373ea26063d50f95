package models

import "time"

// MetricSnapshot is a persisted metric report, kept so operators can track
// how a project's health evolves between computations.
type MetricSnapshot struct {
	ID        int64        `json:"id"`
	Label     string       `json:"label"`
	Level     Level        `json:"level"`
	RepoList  []string     `json:"repo_list"`
	AsOfDate  time.Time    `json:"as_of_date"`
	Report    MetricResult `json:"report"`
	CreatedAt time.Time    `json:"created_at"`
}
