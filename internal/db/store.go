// Package db persists computed metric snapshots so operators can track how
// project health evolves between computations. The aggregation engine itself
// never reads from here; every metric call hits the search backend fresh.
package db

import (
	"context"

	"github.com/oss-insight/repo-health-monitor/internal/models"
)

// Store defines the interface for snapshot persistence
type Store interface {
	// SaveSnapshot persists a computed metric report
	SaveSnapshot(ctx context.Context, snapshot *models.MetricSnapshot) error

	// ListSnapshots returns snapshots for a label, newest first
	ListSnapshots(ctx context.Context, label string, limit int) ([]*models.MetricSnapshot, error)

	// GetLatestSnapshot returns the newest snapshot for a label
	GetLatestSnapshot(ctx context.Context, label string) (*models.MetricSnapshot, error)

	// Migrate applies pending schema migrations
	Migrate() error

	// Close releases the underlying connection pool
	Close() error
}
