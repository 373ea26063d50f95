package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oss-insight/repo-health-monitor/internal/models"
	"github.com/oss-insight/repo-health-monitor/internal/search"
	"github.com/oss-insight/repo-health-monitor/pkg/utils"
)

const (
	// messagePageSize is the commit-message fetch page size.
	messagePageSize = 500

	// prLookupChunkSize caps the number of commit hashes per linked-PR
	// lookup; the backend rejects larger terms clauses.
	prLookupChunkSize = 100
)

// CommitPrLinkedCount reports how many distinct commits of the trailing 90
// days are referenced by a pull request's linked-commit set.
func (a *Aggregator) CommitPrLinkedCount(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	from, to := window(asOf)
	hashes, err := a.fetchCommitHashes(ctx, from, to, utils.GitLogRepos(repos))
	if err != nil {
		return nil, err
	}
	if len(hashes) == 0 {
		return models.MetricResult{MetricCommitPrLinkedCount: 0}, nil
	}

	hashList := make([]string, 0, len(hashes))
	for hash := range hashes {
		hashList = append(hashList, hash)
	}
	sort.Strings(hashList)

	prLinked := make(map[string]struct{})
	for start := 0; start < len(hashList); start += prLookupChunkSize {
		end := start + prLookupChunkSize
		if end > len(hashList) {
			end = len(hashList)
		}
		chunk := hashList[start:end]

		body := search.MessageListQuery("commits_data", chunk, prLookupChunkSize, nil, nil, nil)
		resp, err := a.client.Search(ctx, a.indices.PR, body)
		if err != nil {
			return nil, fmt.Errorf("linked pull request lookup failed: %w", err)
		}
		for _, hit := range resp.Hits.Hits {
			var pr struct {
				CommitsData []string `json:"commits_data"`
			}
			if err := jsonUnmarshalHit(hit, &pr); err != nil {
				return nil, fmt.Errorf("failed to decode pull request record: %w", err)
			}
			for _, hash := range pr.CommitsData {
				prLinked[hash] = struct{}{}
			}
		}
	}

	linked := 0
	for hash := range hashes {
		if _, ok := prLinked[hash]; ok {
			linked++
		}
	}

	return models.MetricResult{MetricCommitPrLinkedCount: linked}, nil
}

// CommitPrLinkedRatio reports the share of window commits linked to a pull
// request. The denominator is the contributor-index commit count; the result
// is nil when that count is zero.
func (a *Aggregator) CommitPrLinkedRatio(ctx context.Context, asOf time.Time, repos []string) (models.MetricResult, error) {
	countResult, err := a.CommitCount(ctx, asOf, repos)
	if err != nil {
		return nil, err
	}
	commitCount := countResult[MetricCommitCount].(int)

	linkedResult, err := a.CommitPrLinkedCount(ctx, asOf, repos)
	if err != nil {
		return nil, err
	}
	linked := linkedResult[MetricCommitPrLinkedCount].(int)

	if commitCount == 0 {
		return models.MetricResult{MetricCommitPrLinkedRatio: nil}, nil
	}
	return models.MetricResult{
		MetricCommitPrLinkedRatio: float64(linked) / float64(commitCount),
	}, nil
}

// fetchCommitHashes scrolls the commit-log index for all commit hashes in
// the window, deduplicated. Pagination proceeds strictly sequentially and
// terminates on the first empty page.
func (a *Aggregator) fetchCommitHashes(ctx context.Context, from, to time.Time, gitRepos []string) (map[string]struct{}, error) {
	if len(gitRepos) == 0 {
		return nil, nil
	}

	hashes := make(map[string]struct{})
	nextQuery := func(searchAfter []any) map[string]any {
		return search.MessageListQuery("tag", gitRepos, messagePageSize, &from, &to, searchAfter)
	}
	err := a.client.Scroll(ctx, a.indices.Git, nextQuery, func(hits []search.Hit) error {
		for _, hit := range hits {
			var commit struct {
				Hash string `json:"hash"`
			}
			if err := jsonUnmarshalHit(hit, &commit); err != nil {
				return fmt.Errorf("failed to decode commit record: %w", err)
			}
			if commit.Hash != "" {
				hashes[commit.Hash] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch commit messages: %w", err)
	}
	return hashes, nil
}
