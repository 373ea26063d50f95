package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/oss-insight/repo-health-monitor/internal/datemath"
	"github.com/oss-insight/repo-health-monitor/internal/models"
	"github.com/oss-insight/repo-health-monitor/internal/search"
	"github.com/oss-insight/repo-health-monitor/pkg/utils"
)

// IsMaintained reports the fraction of maintenance samples with commit
// activity, rounded to four decimals.
//
// At repo level the trailing 90 days are sampled in 7-day steps and each
// sample checks for at least one commit hash across all given repos. At
// project and community level each repository is sampled once over its
// trailing 30 days instead. An empty sample set yields 0, not an error.
func (a *Aggregator) IsMaintained(ctx context.Context, asOf time.Time, repos []string, level models.Level) (models.MetricResult, error) {
	gitRepos := utils.GitLogRepos(repos)
	var samples []bool

	switch level {
	case models.LevelRepo:
		grid := datemath.Sequence(asOf.AddDate(0, 0, -lookbackDays), asOf, 7)
		for _, day := range grid {
			active, err := a.hasCommitHash(ctx, gitRepos, day.AddDate(0, 0, -7), day)
			if err != nil {
				return nil, err
			}
			samples = append(samples, active)
		}

	case models.LevelProject, models.LevelCommunity:
		for _, repo := range gitRepos {
			active, err := a.hasCommitHash(ctx, []string{repo}, asOf.AddDate(0, 0, -30), asOf)
			if err != nil {
				return nil, err
			}
			samples = append(samples, active)
		}
	}

	maintained := 0.0
	if len(samples) > 0 {
		activeCount := 0
		for _, active := range samples {
			if active {
				activeCount++
			}
		}
		maintained = float64(activeCount) / float64(len(samples))
	}

	return models.MetricResult{MetricIsMaintained: round4(maintained)}, nil
}

// hasCommitHash runs a cardinality aggregation on commit hashes and reports
// whether the window holds at least one.
func (a *Aggregator) hasCommitHash(ctx context.Context, gitRepos []string, from, to time.Time) (bool, error) {
	body := search.AggQuery(search.AggCardinality, gitRepos, "hash", creationDateField, from, to)
	resp, err := a.client.Search(ctx, a.indices.Git, body)
	if err != nil {
		return false, fmt.Errorf("commit hash cardinality query failed: %w", err)
	}
	return resp.Aggregations[search.AggResultKey].Value > 0, nil
}
