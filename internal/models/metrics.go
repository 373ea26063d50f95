package models

// MetricResult maps metric names to their computed values. Values are
// JSON-serializable: numbers, nil for "no data", or structured breakdowns
// such as []OrgCommitDetail.
type MetricResult map[string]any

// Merge copies every entry of other into the result and returns it.
func (r MetricResult) Merge(other MetricResult) MetricResult {
	for k, v := range other {
		r[k] = v
	}
	return r
}

// OrgCommitDetail is the per-organization breakdown produced by the
// org commit frequency metric.
type OrgCommitDetail struct {
	OrgName string `json:"org_name"`
	IsOrg   bool   `json:"is_org"`
	// OrgCommit is the number of window commits attributable to the
	// organization.
	OrgCommit int `json:"org_commit"`
	// OrgCommitPercentageByOrg is the share against all org-attributed
	// commits for organization entries, or against the non-org remainder
	// for domain-only entries.
	OrgCommitPercentageByOrg   float64 `json:"org_commit_percentage_by_org"`
	OrgCommitPercentageByTotal float64 `json:"org_commit_percentage_by_total"`
}

// Level selects the aggregation granularity for the metrics that behave
// differently per repository versus across a project or community.
type Level string

const (
	LevelRepo      Level = "repo"
	LevelProject   Level = "project"
	LevelCommunity Level = "community"
)

// Valid reports whether the level is one of the known granularities.
func (l Level) Valid() bool {
	switch l {
	case LevelRepo, LevelProject, LevelCommunity:
		return true
	}
	return false
}
