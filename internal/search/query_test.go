package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestUpdatedSinceQuery(t *testing.T) {
	repos := []string{"https://github.com/a/b"}
	body := UpdatedSinceQuery(repos, "grimoire_creation_date", day(t, "2024-06-30"), "asc")

	assert.Equal(t, 1, body["size"])
	sort := body["sort"].([]any)
	require.Len(t, sort, 1)
	assert.Equal(t,
		map[string]any{"grimoire_creation_date": map[string]any{"order": "asc"}},
		sort[0])

	filters := body["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	require.Len(t, filters, 2)
	assert.Equal(t, map[string]any{"terms": map[string]any{"tag": repos}}, filters[0])
	assert.Equal(t,
		map[string]any{"range": map[string]any{"grimoire_creation_date": map[string]any{"lte": "2024-06-30"}}},
		filters[1])
}

func TestAggQuery(t *testing.T) {
	repos := []string{"https://github.com/a/b.git"}
	body := AggQuery(AggCardinality, repos, "hash", "grimoire_creation_date",
		day(t, "2024-04-01"), day(t, "2024-06-30"))

	assert.Equal(t, 0, body["size"])
	aggs := body["aggs"].(map[string]any)
	require.Contains(t, aggs, AggResultKey)
	assert.Equal(t,
		map[string]any{"cardinality": map[string]any{"field": "hash"}},
		aggs[AggResultKey])

	sum := AggQuery(AggSum, repos, "lines_changed", "grimoire_creation_date",
		day(t, "2024-04-01"), day(t, "2024-06-30"))
	assert.Equal(t,
		map[string]any{"sum": map[string]any{"field": "lines_changed"}},
		sum["aggs"].(map[string]any)[AggResultKey])
}

func TestMessageListQuery(t *testing.T) {
	t.Run("window and cursor are optional", func(t *testing.T) {
		body := MessageListQuery("commits_data", []string{"h1", "h2"}, 100, nil, nil, nil)
		assert.Equal(t, 100, body["size"])
		assert.NotContains(t, body, "search_after")

		filters := body["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
		require.Len(t, filters, 1)
	})

	t.Run("window and cursor are applied when present", func(t *testing.T) {
		from := day(t, "2024-04-01")
		to := day(t, "2024-06-30")
		cursor := []any{"2024-05-01", "h9"}
		body := MessageListQuery("tag", []string{"https://github.com/a/b.git"}, 500, &from, &to, cursor)

		assert.Equal(t, cursor, body["search_after"])
		filters := body["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
		require.Len(t, filters, 2)
		assert.Equal(t,
			map[string]any{"range": map[string]any{"grimoire_creation_date": map[string]any{
				"gte": "2024-04-01",
				"lte": "2024-06-30",
			}}},
			filters[1])
	})
}

func TestContributorQuery(t *testing.T) {
	body := ContributorQuery([]string{"https://github.com/a/b"}, "code_commit_date_list",
		day(t, "2024-04-01"), day(t, "2024-06-30"), 500, nil)

	assert.Equal(t, 500, body["size"])
	filters := body["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	require.Len(t, filters, 2)
	assert.Equal(t,
		map[string]any{"terms": map[string]any{"repo_name.keyword": []string{"https://github.com/a/b"}}},
		filters[0])
}

func TestRepoMetadataQuery(t *testing.T) {
	body := RepoMetadataQuery("https://github.com/a/b")
	assert.Equal(t, 1, body["size"])
	filters := body["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	require.Len(t, filters, 1)
	assert.Equal(t, map[string]any{"term": map[string]any{"origin": "https://github.com/a/b"}}, filters[0])
}
