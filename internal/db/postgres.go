package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	apperrors "github.com/oss-insight/repo-health-monitor/internal/errors"
	"github.com/oss-insight/repo-health-monitor/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Migrate() error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "internal/db/migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snapshot *models.MetricSnapshot) error {
	report, err := json.Marshal(snapshot.Report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	repos, err := json.Marshal(snapshot.RepoList)
	if err != nil {
		return fmt.Errorf("failed to encode repo list: %w", err)
	}

	query := `
		INSERT INTO metric_snapshots (label, level, repo_list, as_of_date, report)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = s.db.QueryRowContext(ctx, query,
		snapshot.Label,
		string(snapshot.Level),
		repos,
		snapshot.AsOfDate,
		report,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
	if err != nil {
		return apperrors.NewInternalError("failed to save snapshot", err)
	}

	return nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, label string, limit int) ([]*models.MetricSnapshot, error) {
	query := `
		SELECT
			id, label, level, repo_list, as_of_date, report, created_at
		FROM
			metric_snapshots
		WHERE
			label = $1
		ORDER BY
			created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, label, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query snapshots", err)
	}
	defer rows.Close()

	var snapshots []*models.MetricSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

func (s *PostgresStore) GetLatestSnapshot(ctx context.Context, label string) (*models.MetricSnapshot, error) {
	snapshots, err := s.ListSnapshots(ctx, label, 1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no snapshot for label: %s", label), nil)
	}
	return snapshots[0], nil
}

func scanSnapshot(rows *sql.Rows) (*models.MetricSnapshot, error) {
	var snapshot models.MetricSnapshot
	var level string
	var repos, report []byte
	if err := rows.Scan(
		&snapshot.ID,
		&snapshot.Label,
		&level,
		&repos,
		&snapshot.AsOfDate,
		&report,
		&snapshot.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	snapshot.Level = models.Level(level)
	if err := json.Unmarshal(repos, &snapshot.RepoList); err != nil {
		return nil, fmt.Errorf("failed to decode repo list: %w", err)
	}
	if err := json.Unmarshal(report, &snapshot.Report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &snapshot, nil
}
