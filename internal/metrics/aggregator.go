// Package metrics is the temporal aggregation engine. It reduces raw commit
// event streams, contributor org-affiliation timelines and repository
// metadata into windowed, normalized health statistics.
//
// All date filtering inside the aggregation loops compares YYYY-MM-DD strings
// lexicographically; callers guarantee the format. Every metric reconstructs
// its working set from the backend per invocation, so no state is shared
// between calls.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/oss-insight/repo-health-monitor/internal/errors"
	"github.com/oss-insight/repo-health-monitor/internal/models"
	"github.com/oss-insight/repo-health-monitor/internal/search"
)

const (
	// lookbackDays is the default metric window.
	lookbackDays = 90

	// weeksIn90Days converts 90-day counts into weekly rates. The value is a
	// fixed approximation kept for numeric compatibility with downstream
	// consumers; do not recompute it.
	weeksIn90Days = 12.85

	// commitDateField is the contributor-index field holding commit dates.
	commitDateField = "code_commit_date_list"

	// creationDateField is the document creation date on commit-log and
	// pull-request documents.
	creationDateField = "grimoire_creation_date"

	// updatedDateField is the last-touched timestamp on commit-log documents.
	updatedDateField = "metadata__updated_on"
)

// Searcher is the slice of the search client the aggregator needs.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (*search.Response, error)
	Scroll(ctx context.Context, index string, nextQuery func(searchAfter []any) map[string]any, handle func(hits []search.Hit) error) error
}

// ContributorLister fetches contributor records for repos and a window.
type ContributorLister interface {
	List(ctx context.Context, from, to time.Time, repos []string, dateField string) ([]*models.Contributor, error)
}

// Indices names the backend indices the aggregator queries.
type Indices struct {
	Git          string
	Repo         string
	Contributors string
	PR           string
}

// Aggregator computes the windowed health metrics.
type Aggregator struct {
	client       Searcher
	contributors ContributorLister
	indices      Indices
	logger       *logrus.Logger
}

// New creates an aggregator over the given backend client and indices.
func New(client Searcher, contributors ContributorLister, indices Indices, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		client:       client,
		contributors: contributors,
		indices:      indices,
		logger:       logger,
	}
}

// Metric names as they appear in report keys.
const (
	MetricCreatedSince               = "created_since"
	MetricUpdatedSince               = "updated_since"
	MetricCommitFrequency            = "commit_frequency"
	MetricCommitCount                = "commit_count"
	MetricOrgCount                   = "org_count"
	MetricOrgCommitFrequency         = "org_commit_frequency"
	MetricOrgContributionLast        = "org_contribution_last"
	MetricIsMaintained               = "is_maintained"
	MetricCommitPrLinkedCount        = "commit_pr_linked_count"
	MetricCommitPrLinkedRatio        = "commit_pr_linked_ratio"
	MetricLinesOfCodeFrequency       = "lines_of_code_frequency"
	MetricLinesAddOfCodeFrequency    = "lines_add_of_code_frequency"
	MetricLinesRemoveOfCodeFrequency = "lines_remove_of_code_frequency"
)

// Report computes every metric and merges the results into one flat mapping.
func (a *Aggregator) Report(ctx context.Context, asOf time.Time, repos []string, level models.Level) (models.MetricResult, error) {
	start := time.Now()
	result := models.MetricResult{}

	parts := []func() (models.MetricResult, error){
		func() (models.MetricResult, error) { return a.CreatedSince(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.UpdatedSince(ctx, asOf, repos, level) },
		func() (models.MetricResult, error) { return a.CommitFrequency(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.CommitCount(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.OrgCount(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.OrgCommitFrequency(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.OrgContributionLast(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.IsMaintained(ctx, asOf, repos, level) },
		func() (models.MetricResult, error) { return a.CommitPrLinkedCount(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.CommitPrLinkedRatio(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.LinesOfCodeFrequency(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.LinesAddOfCodeFrequency(ctx, asOf, repos) },
		func() (models.MetricResult, error) { return a.LinesRemoveOfCodeFrequency(ctx, asOf, repos) },
	}
	for _, part := range parts {
		partial, err := part()
		if err != nil {
			return nil, err
		}
		result.Merge(partial)
	}

	a.logger.WithFields(logrus.Fields{
		"repos":    len(repos),
		"level":    string(level),
		"as_of":    asOf.Format("2006-01-02"),
		"duration": time.Since(start).String(),
	}).Info("Computed metric report")

	return result, nil
}

// Metric computes a single metric selected by its report key.
func (a *Aggregator) Metric(ctx context.Context, name string, asOf time.Time, repos []string, level models.Level) (models.MetricResult, error) {
	switch name {
	case MetricCreatedSince:
		return a.CreatedSince(ctx, asOf, repos)
	case MetricUpdatedSince:
		return a.UpdatedSince(ctx, asOf, repos, level)
	case MetricCommitFrequency:
		return a.CommitFrequency(ctx, asOf, repos)
	case MetricCommitCount:
		return a.CommitCount(ctx, asOf, repos)
	case MetricOrgCount:
		return a.OrgCount(ctx, asOf, repos)
	case MetricOrgCommitFrequency:
		return a.OrgCommitFrequency(ctx, asOf, repos)
	case MetricOrgContributionLast:
		return a.OrgContributionLast(ctx, asOf, repos)
	case MetricIsMaintained:
		return a.IsMaintained(ctx, asOf, repos, level)
	case MetricCommitPrLinkedCount:
		return a.CommitPrLinkedCount(ctx, asOf, repos)
	case MetricCommitPrLinkedRatio:
		return a.CommitPrLinkedRatio(ctx, asOf, repos)
	case MetricLinesOfCodeFrequency:
		return a.LinesOfCodeFrequency(ctx, asOf, repos)
	case MetricLinesAddOfCodeFrequency:
		return a.LinesAddOfCodeFrequency(ctx, asOf, repos)
	case MetricLinesRemoveOfCodeFrequency:
		return a.LinesRemoveOfCodeFrequency(ctx, asOf, repos)
	}
	return nil, apperrors.New(apperrors.ErrInvalidInput, fmt.Sprintf("unknown metric: %s", name), nil)
}

// window returns the default lookback window ending at asOf.
func window(asOf time.Time) (time.Time, time.Time) {
	return asOf.AddDate(0, 0, -lookbackDays), asOf
}

// round4 rounds to four decimal places, the precision the report contract
// fixes for ratios and month ages.
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// jsonUnmarshalHit decodes a hit's source document into v.
func jsonUnmarshalHit(hit search.Hit, v any) error {
	return json.Unmarshal(hit.Source, v)
}

// hitDate extracts a string date field from a hit document.
func hitDate(hit search.Hit, field string) (string, bool) {
	var doc map[string]any
	if err := json.Unmarshal(hit.Source, &doc); err != nil {
		return "", false
	}
	s, ok := doc[field].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
