// Package contributor reads contributor profiles from the contributors index.
package contributor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oss-insight/repo-health-monitor/internal/models"
	"github.com/oss-insight/repo-health-monitor/internal/search"
)

// pageSize is the number of contributor records fetched per page.
const pageSize = 500

// Scroller is the slice of the search client the reader needs.
type Scroller interface {
	Scroll(ctx context.Context, index string, nextQuery func(searchAfter []any) map[string]any, handle func(hits []search.Hit) error) error
}

// Reader fetches contributor records for a set of repositories and a time
// window. Every call hits the backend fresh; nothing is cached.
type Reader struct {
	client Scroller
	index  string
	logger *logrus.Logger
}

// NewReader creates a contributor reader over the given index.
func NewReader(client Scroller, index string, logger *logrus.Logger) *Reader {
	return &Reader{
		client: client,
		index:  index,
		logger: logger,
	}
}

// List returns the contributor records of the given repos whose dateField
// activity intersects [from, to]. An empty repo list or an empty result
// yields an empty slice, never an error.
func (r *Reader) List(ctx context.Context, from, to time.Time, repos []string, dateField string) ([]*models.Contributor, error) {
	if len(repos) == 0 {
		return nil, nil
	}

	var contributors []*models.Contributor
	nextQuery := func(searchAfter []any) map[string]any {
		return search.ContributorQuery(repos, dateField, from, to, pageSize, searchAfter)
	}

	err := r.client.Scroll(ctx, r.index, nextQuery, func(hits []search.Hit) error {
		for _, hit := range hits {
			var c models.Contributor
			if err := json.Unmarshal(hit.Source, &c); err != nil {
				return fmt.Errorf("failed to decode contributor record: %w", err)
			}
			contributors = append(contributors, &c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list contributors: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"repos":        len(repos),
		"contributors": len(contributors),
		"date_field":   dateField,
	}).Debug("Fetched contributor records")

	return contributors, nil
}
