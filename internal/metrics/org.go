package metrics

import (
	"context"
	"sort"
	"time"

	"github.com/oss-insight/repo-health-monitor/internal/datemath"
	"github.com/oss-insight/repo-health-monitor/internal/models"
)

// OrgCount reports the number of distinct organizations that active code
// contributors belonged to during the trailing 90 days. An organization
// counts when its affiliation interval overlaps any part of the window; no
// commit inside the window is required.
func (a *Aggregator) OrgCount(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	from, to := window(asOf)
	contributors, err := a.contributors.List(ctx, from, to, repos, commitDateField)
	if err != nil {
		return nil, err
	}

	fromStr := datemath.DayString(from)
	toStr := datemath.DayString(to)
	orgNames := make(map[string]struct{})
	for _, c := range contributors {
		for _, org := range c.OrgChangeDateList {
			if org.OrgName == nil {
				continue
			}
			if datemath.Overlaps(org.FirstDate, org.LastDate, fromStr, toStr) {
				orgNames[*org.OrgName] = struct{}{}
			}
		}
	}

	return models.MetricResult{MetricOrgCount: len(orgNames)}, nil
}

// OrgCommitFrequency reports the weekly rate of organization-affiliated
// commits over the trailing 90 days, plus a per-organization breakdown.
//
// Commits are filtered into the half-open window [from, to). Each commit is
// attributed to at most one organization: the first affiliation interval in
// timeline order whose [first_date, last_date) contains the commit date. The
// breakdown is keyed by organization name (or email domain for unaffiliated
// entries), deduplicated per commit so a contributor's timeline cannot count
// the same key twice for one commit.
func (a *Aggregator) OrgCommitFrequency(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	from, to := window(asOf)
	contributors, err := a.contributors.List(ctx, from, to, repos, commitDateField)
	if err != nil {
		return nil, err
	}

	fromStr := datemath.DayString(from)
	toStr := datemath.DayString(to)

	totalCommits := 0
	orgCommits := 0
	orgCommitsBot := 0
	orgCommitsWithoutBot := 0
	details := make(map[string]*models.OrgCommitDetail)

	for _, c := range contributors {
		commitDates := make([]string, 0, len(c.CodeCommitDateList))
		for _, commit := range c.CodeCommitDateList {
			if fromStr <= commit && commit < toStr {
				commitDates = append(commitDates, commit)
			}
		}
		sort.Strings(commitDates)
		totalCommits += len(commitDates)

		for _, commit := range commitDates {
			for _, org := range c.OrgChangeDateList {
				if org.OrgName != nil && org.FirstDate <= commit && commit < org.LastDate {
					orgCommits++
					if c.IsBot {
						orgCommitsBot++
					} else {
						orgCommitsWithoutBot++
					}
					break
				}
			}

			seen := make(map[string]struct{})
			for _, org := range c.OrgChangeDateList {
				key, isOrg := org.Key()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}

				entry := details[key]
				if entry == nil {
					entry = &models.OrgCommitDetail{OrgName: key, IsOrg: isOrg}
					details[key] = entry
				}
				if org.FirstDate <= commit && commit < org.LastDate {
					entry.OrgCommit++
				}
			}
		}
	}

	nonOrgCommits := totalCommits - orgCommits
	breakdown := make([]models.OrgCommitDetail, 0, len(details))
	for _, entry := range details {
		if entry.OrgCommit == 0 {
			continue
		}
		var byOrg float64
		if entry.IsOrg {
			if orgCommits != 0 {
				byOrg = float64(entry.OrgCommit) / float64(orgCommits)
			}
		} else {
			if nonOrgCommits != 0 {
				byOrg = float64(entry.OrgCommit) / float64(nonOrgCommits)
			}
		}
		entry.OrgCommitPercentageByOrg = round4(byOrg)
		if totalCommits != 0 {
			entry.OrgCommitPercentageByTotal = round4(float64(entry.OrgCommit) / float64(totalCommits))
		}
		breakdown = append(breakdown, *entry)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].OrgCommit != breakdown[j].OrgCommit {
			return breakdown[i].OrgCommit > breakdown[j].OrgCommit
		}
		// Name tie-break keeps the order deterministic across map iteration.
		return breakdown[i].OrgName < breakdown[j].OrgName
	})

	return models.MetricResult{
		MetricOrgCommitFrequency:                  round4(float64(orgCommits) / weeksIn90Days),
		MetricOrgCommitFrequency + "_bot":         round4(float64(orgCommitsBot) / weeksIn90Days),
		MetricOrgCommitFrequency + "_without_bot": round4(float64(orgCommitsWithoutBot) / weeksIn90Days),
		MetricOrgCommitFrequency + "_list":        breakdown,
	}, nil
}

// OrgContributionLast reports the total contribution time of organizations
// over the trailing 90 days, in weeks. For every repository and every 7-day
// sub-window, each distinct organization with an overlapping affiliation and
// at least one commit inside the sub-window counts one week; an organization
// active in several weeks counts once per week.
func (a *Aggregator) OrgContributionLast(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	from, to := window(asOf)
	contributors, err := a.contributors.List(ctx, from, to, repos, commitDateField)
	if err != nil {
		return nil, err
	}

	byRepo := make(map[string][]*models.Contributor)
	for _, c := range contributors {
		byRepo[c.RepoName] = append(byRepo[c.RepoName], c)
	}

	grid := datemath.Sequence(from, to, 7)
	contributionWeeks := 0
	for _, repoContributors := range byRepo {
		for _, day := range grid {
			fromDay := datemath.DayString(day.AddDate(0, 0, -7))
			toDay := datemath.DayString(day)

			activeOrgs := make(map[string]struct{})
			for _, c := range repoContributors {
				for _, org := range c.OrgChangeDateList {
					if org.OrgName == nil {
						continue
					}
					if !datemath.Overlaps(org.FirstDate, org.LastDate, fromDay, toDay) {
						continue
					}
					for _, commit := range c.CodeCommitDateList {
						if fromDay <= commit && commit <= toDay {
							activeOrgs[*org.OrgName] = struct{}{}
							break
						}
					}
				}
			}
			contributionWeeks += len(activeOrgs)
		}
	}

	return models.MetricResult{MetricOrgContributionLast: contributionWeeks}, nil
}
