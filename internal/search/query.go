package search

import (
	"time"

	"github.com/oss-insight/repo-health-monitor/internal/datemath"
)

// Query builders. Each is a pure function producing an opaque query body for
// the backend from semantic parameters; callers never assemble bodies by hand.

// AggKind selects the single-valued aggregation a query requests.
type AggKind string

const (
	AggCardinality AggKind = "cardinality"
	AggSum         AggKind = "sum"
)

// AggResultKey is the name under which aggregation queries report their value.
const AggResultKey = "count_of_uuid"

// UpdatedSinceQuery finds the single newest (order "desc") or oldest (order
// "asc") document on dateField at or before toDate for the given repos.
func UpdatedSinceQuery(repos []string, dateField string, toDate time.Time, order string) map[string]any {
	return map[string]any{
		"size": 1,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"terms": map[string]any{"tag": repos}},
					map[string]any{"range": map[string]any{
						dateField: map[string]any{"lte": datemath.DayString(toDate)},
					}},
				},
			},
		},
		"sort": []any{
			map[string]any{dateField: map[string]any{"order": order}},
		},
	}
}

// AggQuery requests a single aggregation of the given kind over field for
// documents of the repos whose dateField falls inside [from, to]. The result
// arrives under AggResultKey; no hits are returned.
func AggQuery(kind AggKind, repos []string, field, dateField string, from, to time.Time) map[string]any {
	return map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"terms": map[string]any{"tag": repos}},
					map[string]any{"range": map[string]any{
						dateField: map[string]any{
							"gte": datemath.DayString(from),
							"lte": datemath.DayString(to),
						},
					}},
				},
			},
		},
		"aggs": map[string]any{
			AggResultKey: map[string]any{
				string(kind): map[string]any{"field": field},
			},
		},
	}
}

// MessageListQuery matches documents whose field equals any of values,
// optionally restricted to a creation-date window, sorted for stable deep
// pagination. A non-nil searchAfter resumes after that cursor.
func MessageListQuery(field string, values []string, size int, from, to *time.Time, searchAfter []any) map[string]any {
	filters := []any{
		map[string]any{"terms": map[string]any{field: values}},
	}
	if from != nil && to != nil {
		filters = append(filters, map[string]any{"range": map[string]any{
			"grimoire_creation_date": map[string]any{
				"gte": datemath.DayString(*from),
				"lte": datemath.DayString(*to),
			},
		}})
	}

	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{"filter": filters},
		},
		"sort": []any{
			map[string]any{"grimoire_creation_date": map[string]any{"order": "asc"}},
			map[string]any{"_id": map[string]any{"order": "asc"}},
		},
	}
	if len(searchAfter) > 0 {
		body["search_after"] = searchAfter
	}
	return body
}

// RepoMetadataQuery fetches the newest metadata document of a repository.
func RepoMetadataQuery(repo string) map[string]any {
	return map[string]any{
		"size": 1,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"origin": repo}},
				},
			},
		},
		"sort": []any{
			map[string]any{"metadata__updated_on": map[string]any{"order": "desc"}},
		},
	}
}

// ContributorQuery matches contributor records of the given repos whose
// dateField list intersects [from, to], sorted for deep pagination.
func ContributorQuery(repos []string, dateField string, from, to time.Time, size int, searchAfter []any) map[string]any {
	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"terms": map[string]any{"repo_name.keyword": repos}},
					map[string]any{"range": map[string]any{
						dateField: map[string]any{
							"gte": datemath.DayString(from),
							"lte": datemath.DayString(to),
						},
					}},
				},
			},
		},
		"sort": []any{
			map[string]any{"_id": map[string]any{"order": "asc"}},
		},
	}
	if len(searchAfter) > 0 {
		body["search_after"] = searchAfter
	}
	return body
}
