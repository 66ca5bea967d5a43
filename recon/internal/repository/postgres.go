package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearledger-systems/clearledger-stack/recon/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

const snapshotColumns = `
	id, cycle_id, remit_investor_minor, remit_servicer_minor,
	ledger_investor_minor, ledger_servicer_minor,
	diff_investor_minor, diff_servicer_minor, diff_total_minor,
	is_balanced, variance_threshold_minor, reviewer, created_at`

func (r *PostgresRepository) CreateSnapshot(ctx context.Context, s *models.ReconciliationSnapshot) error {
	query := `
		INSERT INTO reconciliation_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.CycleID, s.RemitInvestorMinor, s.RemitServicerMinor,
		s.LedgerInvestorMinor, s.LedgerServicerMinor,
		s.DiffInvestorMinor, s.DiffServicerMinor, s.DiffTotalMinor,
		s.IsBalanced, s.VarianceThresholdMinor, s.Reviewer, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListSnapshots(ctx context.Context, cycleID string) ([]*models.ReconciliationSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM reconciliation_snapshots
		WHERE cycle_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.ReconciliationSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func (r *PostgresRepository) LatestSnapshot(ctx context.Context, cycleID string) (*models.ReconciliationSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM reconciliation_snapshots
		WHERE cycle_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	s, err := scanSnapshot(r.pool.QueryRow(ctx, query, cycleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return s, nil
}

// LedgerBalance is a point-in-time aggregate over the external ledger table.
func (r *PostgresRepository) LedgerBalance(ctx context.Context, accountCode string, from, to time.Time, cycleID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'credit' THEN amount_minor ELSE -amount_minor END), 0)
		FROM ledger_entries
		WHERE account_code = $1
		  AND effective_date >= $2 AND effective_date < $3
		  AND cycle_id = $4
	`

	var balance int64
	if err := r.pool.QueryRow(ctx, query, accountCode, from, to, cycleID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to compute ledger balance: %w", err)
	}

	return balance, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanSnapshot(row pgx.Row) (*models.ReconciliationSnapshot, error) {
	var s models.ReconciliationSnapshot
	if err := row.Scan(&s.ID, &s.CycleID, &s.RemitInvestorMinor, &s.RemitServicerMinor,
		&s.LedgerInvestorMinor, &s.LedgerServicerMinor,
		&s.DiffInvestorMinor, &s.DiffServicerMinor, &s.DiffTotalMinor,
		&s.IsBalanced, &s.VarianceThresholdMinor, &s.Reviewer, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
