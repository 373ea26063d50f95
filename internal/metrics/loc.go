package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/oss-insight/repo-health-monitor/internal/models"
	"github.com/oss-insight/repo-health-monitor/internal/search"
	"github.com/oss-insight/repo-health-monitor/pkg/utils"
)

// LinesOfCodeFrequency reports the average lines touched (added plus
// removed) per week over the trailing 90 days.
func (a *Aggregator) LinesOfCodeFrequency(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	rate, err := a.locFrequency(ctx, asOf, repos, "lines_changed")
	if err != nil {
		return nil, err
	}
	return models.MetricResult{MetricLinesOfCodeFrequency: rate}, nil
}

// LinesAddOfCodeFrequency reports the average lines added per week over the
// trailing 90 days.
func (a *Aggregator) LinesAddOfCodeFrequency(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	rate, err := a.locFrequency(ctx, asOf, repos, "lines_added")
	if err != nil {
		return nil, err
	}
	return models.MetricResult{MetricLinesAddOfCodeFrequency: rate}, nil
}

// LinesRemoveOfCodeFrequency reports the average lines removed per week over
// the trailing 90 days.
func (a *Aggregator) LinesRemoveOfCodeFrequency(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	rate, err := a.locFrequency(ctx, asOf, repos, "lines_removed")
	if err != nil {
		return nil, err
	}
	return models.MetricResult{MetricLinesRemoveOfCodeFrequency: rate}, nil
}

// locFrequency runs a single sum aggregation over the given churn field and
// converts the 90-day total into a weekly rate.
func (a *Aggregator) locFrequency(ctx context.Context, asOf time.Time, repos []string, field string) (float64, error) {
	from, to := window(asOf)
	body := search.AggQuery(search.AggSum, utils.GitLogRepos(repos), field, creationDateField, from, to)
	resp, err := a.client.Search(ctx, a.indices.Git, body)
	if err != nil {
		return 0, fmt.Errorf("%s sum query failed: %w", field, err)
	}
	return resp.Aggregations[search.AggResultKey].Value / weeksIn90Days, nil
}
