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

// CreatedSince reports how long the repositories have existed, in months.
// Ages are summed across repos, not averaged; the result is nil when no repo
// has any commit history at or before asOf.
func (a *Aggregator) CreatedSince(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	var ages []float64
	for _, repo := range repos {
		body := search.UpdatedSinceQuery(utils.GitLogRepos([]string{repo}), creationDateField, asOf, "asc")
		resp, err := a.client.Search(ctx, a.indices.Git, body)
		if err != nil {
			return nil, fmt.Errorf("created_since query for %s failed: %w", repo, err)
		}
		if len(resp.Hits.Hits) == 0 {
			continue
		}
		creation, ok := hitDate(resp.Hits.Hits[0], creationDateField)
		if !ok {
			continue
		}
		ages = append(ages, datemath.MonthsBetween(creation, datemath.DayString(asOf)))
	}

	if len(ages) == 0 {
		return models.MetricResult{MetricCreatedSince: nil}, nil
	}
	sum := 0.0
	for _, age := range ages {
		sum += age
	}
	return models.MetricResult{MetricCreatedSince: round4(sum)}, nil
}

// UpdatedSince reports the average time since each repository was last
// updated, in months. At project and community level, repositories archived
// strictly before asOf are skipped; at repo level they are not, so a single
// archived repo still reports its raw staleness. Nil when no repo qualifies.
func (a *Aggregator) UpdatedSince(ctx context.Context, asOf time.Time, repos []string, level models.Level) (models.MetricResult, error) {
	asOfDay := datemath.DayString(asOf)
	var ages []float64
	for _, repo := range repos {
		if level == models.LevelProject || level == models.LevelCommunity {
			archived, err := a.repoArchivedBefore(ctx, repo, asOfDay)
			if err != nil {
				return nil, err
			}
			if archived {
				continue
			}
		}

		body := search.UpdatedSinceQuery(utils.GitLogRepos([]string{repo}), updatedDateField, asOf, "desc")
		resp, err := a.client.Search(ctx, a.indices.Git, body)
		if err != nil {
			return nil, fmt.Errorf("updated_since query for %s failed: %w", repo, err)
		}
		if len(resp.Hits.Hits) == 0 {
			continue
		}
		updated, ok := hitDate(resp.Hits.Hits[0], updatedDateField)
		if !ok {
			continue
		}
		ages = append(ages, datemath.MonthsBetween(updated, asOfDay))
	}

	if len(ages) == 0 {
		return models.MetricResult{MetricUpdatedSince: nil}, nil
	}
	sum := 0.0
	for _, age := range ages {
		sum += age
	}
	return models.MetricResult{MetricUpdatedSince: round4(sum / float64(len(ages)))}, nil
}

// repoArchivedBefore checks the repo-index metadata for an archive marker
// older than the given day. A repo without metadata is treated as live.
func (a *Aggregator) repoArchivedBefore(ctx context.Context, repo, day string) (bool, error) {
	resp, err := a.client.Search(ctx, a.indices.Repo, search.RepoMetadataQuery(repo))
	if err != nil {
		return false, fmt.Errorf("repo metadata query for %s failed: %w", repo, err)
	}
	if len(resp.Hits.Hits) == 0 {
		return false, nil
	}
	var meta models.RepoMetadata
	if err := jsonUnmarshalHit(resp.Hits.Hits[0], &meta); err != nil {
		return false, fmt.Errorf("failed to decode repo metadata for %s: %w", repo, err)
	}
	return meta.ArchivedBefore(day), nil
}

// CommitCount reports the number of commits in the trailing 90 days, split
// into total, bot-only and human-only counts.
func (a *Aggregator) CommitCount(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	from, to := window(asOf)
	contributors, err := a.contributors.List(ctx, from, to, repos, commitDateField)
	if err != nil {
		return nil, err
	}
	return models.MetricResult{
		MetricCommitCount:                  commitCount(from, to, contributors, commitFilter{}),
		MetricCommitCount + "_bot":         commitCount(from, to, contributors, commitFilter{isBot: boolPtr(true)}),
		MetricCommitCount + "_without_bot": commitCount(from, to, contributors, commitFilter{isBot: boolPtr(false)}),
	}, nil
}

// CommitFrequency reports the average commits per week over the trailing 90
// days, with the same bot split as CommitCount.
func (a *Aggregator) CommitFrequency(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	from, to := window(asOf)
	contributors, err := a.contributors.List(ctx, from, to, repos, commitDateField)
	if err != nil {
		return nil, err
	}
	return models.MetricResult{
		MetricCommitFrequency:                  float64(commitCount(from, to, contributors, commitFilter{})) / weeksIn90Days,
		MetricCommitFrequency + "_bot":         float64(commitCount(from, to, contributors, commitFilter{isBot: boolPtr(true)})) / weeksIn90Days,
		MetricCommitFrequency + "_without_bot": float64(commitCount(from, to, contributors, commitFilter{isBot: boolPtr(false)})) / weeksIn90Days,
	}, nil
}

// commitFilter narrows commit counting to a bot classification and/or a
// single organization.
type commitFilter struct {
	isBot   *bool
	company *string
}

// commitCount counts commits whose date falls in the closed window
// [from, to]. This boundary is intentionally asymmetric with the half-open
// window org attribution uses; both are part of the report contract.
//
// With a company filter, only commits inside the affiliation intervals of
// that organization count, clamped to the window via
// latest(from, first) <= commit < oldest(last, to).
func commitCount(from, to time.Time, contributors []*models.Contributor, f commitFilter) int {
	fromStr := datemath.DayString(from)
	toStr := datemath.DayString(to)

	count := 0
	for _, c := range contributors {
		if f.isBot != nil && c.IsBot != *f.isBot {
			continue
		}
		if f.company == nil {
			for _, commit := range c.CodeCommitDateList {
				if fromStr <= commit && commit <= toStr {
					count++
				}
			}
			continue
		}
		for _, org := range c.OrgChangeDateList {
			if org.OrgName == nil || *org.OrgName != *f.company {
				continue
			}
			if !datemath.Overlaps(org.FirstDate, org.LastDate, fromStr, toStr) {
				continue
			}
			lower := datemath.Latest(fromStr, org.FirstDate)
			upper := datemath.Oldest(org.LastDate, toStr)
			for _, commit := range c.CodeCommitDateList {
				if lower <= commit && commit < upper {
					count++
				}
			}
		}
	}
	return count
}

func boolPtr(b bool) *bool {
	return &b
}
