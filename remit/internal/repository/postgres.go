package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearledger-systems/clearledger-stack/remit/internal/models"
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

// CreateContract persists a contract; waterfall rules travel as JSONB.
func (r *PostgresRepository) CreateContract(ctx context.Context, c *models.InvestorContract) error {
	rules, err := json.Marshal(c.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal waterfall rules: %w", err)
	}

	query := `
		INSERT INTO investor_contracts (
			id, investor_id, product_code, remittance_method, remittance_day,
			cutoff_day, servicer_fee_bps, late_fee_split_bps, rules, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		c.ID, c.InvestorID, c.ProductCode, c.RemittanceMethod, c.RemittanceDay,
		c.CutoffDay, c.ServicerFeeBps, c.LateFeeSplitBps, rules, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetContract(ctx context.Context, id string) (*models.InvestorContract, error) {
	query := `
		SELECT id, investor_id, product_code, remittance_method, remittance_day,
		       cutoff_day, servicer_fee_bps, late_fee_split_bps, rules, created_at
		FROM investor_contracts
		WHERE id = $1
	`

	c, err := scanContract(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) ListContracts(ctx context.Context, limit, offset int) ([]*models.InvestorContract, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM investor_contracts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	query := `
		SELECT id, investor_id, product_code, remittance_method, remittance_day,
		       cutoff_day, servicer_fee_bps, late_fee_split_bps, rules, created_at
		FROM investor_contracts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*models.InvestorContract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}

	return contracts, total, rows.Err()
}

const cycleColumns = `
	id, contract_id, period_start, period_end, status,
	total_principal_minor, total_interest_minor, total_fees_minor,
	suspense_minor, servicer_fee_minor, investor_due_minor,
	created_at, locked_at, remitted_at`

func (r *PostgresRepository) CreateCycle(ctx context.Context, c *models.RemittanceCycle) error {
	query := `
		INSERT INTO remittance_cycles (` + cycleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.ContractID, c.PeriodStart, c.PeriodEnd, c.Status,
		c.TotalPrincipalMinor, c.TotalInterestMinor, c.TotalFeesMinor,
		c.SuspenseMinor, c.ServicerFeeMinor, c.InvestorDueMinor,
		c.CreatedAt, c.LockedAt, c.RemittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create cycle: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetCycle(ctx context.Context, id string) (*models.RemittanceCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM remittance_cycles WHERE id = $1`

	c, err := scanCycle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) ListCycles(ctx context.Context, contractID string, limit, offset int) ([]*models.RemittanceCycle, int, error) {
	where := ""
	countArgs := []interface{}{}
	args := []interface{}{limit, offset}
	if contractID != "" {
		where = " WHERE contract_id = $1"
		countArgs = append(countArgs, contractID)
		args = []interface{}{contractID, limit, offset}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM remittance_cycles`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cycles: %w", err)
	}

	query := `SELECT ` + cycleColumns + ` FROM remittance_cycles` + where + ` ORDER BY created_at DESC`
	if contractID != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*models.RemittanceCycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}

	return cycles, total, rows.Err()
}

// TransitionCycle is an optimistic check-then-set on the status column. A
// concurrent transition makes the WHERE clause miss and the loser gets
// ErrInvalidTransition instead of a double transition.
func (r *PostgresRepository) TransitionCycle(ctx context.Context, id, expected, next string, at time.Time) error {
	query := `
		UPDATE remittance_cycles
		SET status = $1,
		    locked_at = CASE WHEN $1 = 'locked' THEN $4 ELSE locked_at END,
		    remitted_at = CASE WHEN $1 = 'remitted' THEN $4 ELSE remitted_at END
		WHERE id = $2 AND status = $3
	`

	tag, err := r.pool.Exec(ctx, query, next, id, expected, at)
	if err != nil {
		return fmt.Errorf("failed to transition cycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// distinguish a missing cycle from a status race
		if _, err := r.GetCycle(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}

	return nil
}

func (r *PostgresRepository) ListOpenCyclesPastCutoff(ctx context.Context, cutoff time.Time) ([]*models.RemittanceCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM remittance_cycles WHERE status = 'open' AND period_end < $1`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles past cutoff: %w", err)
	}
	defer rows.Close()

	var cycles []*models.RemittanceCycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}

	return cycles, rows.Err()
}

func (r *PostgresRepository) UpdateCycleTotals(ctx context.Context, id string, totals CycleTotals) error {
	query := `
		UPDATE remittance_cycles
		SET total_principal_minor = $1, total_interest_minor = $2,
		    total_fees_minor = $3, suspense_minor = $4,
		    servicer_fee_minor = $5, investor_due_minor = $6
		WHERE id = $7
	`

	tag, err := r.pool.Exec(ctx, query,
		totals.PrincipalMinor, totals.InterestMinor, totals.FeesMinor,
		totals.SuspenseMinor, totals.ServicerFeeMinor, totals.InvestorDueMinor, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update cycle totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCycleNotFound
	}

	return nil
}

func (r *PostgresRepository) AddCollection(ctx context.Context, c *models.Collection) error {
	query := `
		INSERT INTO cycle_collections (id, cycle_id, loan_id, bucket, amount_minor, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.CycleID, c.LoanID, c.Bucket, c.AmountMinor, c.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to add collection: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListCollections(ctx context.Context, cycleID string) ([]*models.Collection, error) {
	query := `
		SELECT id, cycle_id, loan_id, bucket, amount_minor, received_at
		FROM cycle_collections
		WHERE cycle_id = $1
		ORDER BY received_at
	`

	rows, err := r.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []*models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.CycleID, &c.LoanID, &c.Bucket, &c.AmountMinor, &c.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, &c)
	}

	return collections, rows.Err()
}

// ReplaceItems swaps a cycle's items in one transaction so a waterfall
// recalculation never leaves a partial item set behind.
func (r *PostgresRepository) ReplaceItems(ctx context.Context, cycleID string, items []*models.RemittanceItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM remittance_items WHERE cycle_id = $1`, cycleID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	query := `
		INSERT INTO remittance_items (
			id, cycle_id, loan_id, principal_minor, interest_minor,
			fees_minor, suspense_minor, investor_share_minor, servicer_fee_minor
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, item := range items {
		if _, err := tx.Exec(ctx, query,
			item.ID, item.CycleID, item.LoanID, item.PrincipalMinor, item.InterestMinor,
			item.FeesMinor, item.SuspenseMinor, item.InvestorShareMinor, item.ServicerFeeMinor,
		); err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) ListItems(ctx context.Context, cycleID string) ([]*models.RemittanceItem, error) {
	query := `
		SELECT id, cycle_id, loan_id, principal_minor, interest_minor,
		       fees_minor, suspense_minor, investor_share_minor, servicer_fee_minor
		FROM remittance_items
		WHERE cycle_id = $1
		ORDER BY loan_id
	`

	rows, err := r.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.RemittanceItem
	for rows.Next() {
		var item models.RemittanceItem
		if err := rows.Scan(&item.ID, &item.CycleID, &item.LoanID, &item.PrincipalMinor,
			&item.InterestMinor, &item.FeesMinor, &item.SuspenseMinor,
			&item.InvestorShareMinor, &item.ServicerFeeMinor); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanContract(row pgx.Row) (*models.InvestorContract, error) {
	var c models.InvestorContract
	var rules []byte
	if err := row.Scan(&c.ID, &c.InvestorID, &c.ProductCode, &c.RemittanceMethod,
		&c.RemittanceDay, &c.CutoffDay, &c.ServicerFeeBps, &c.LateFeeSplitBps,
		&rules, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rules, &c.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waterfall rules: %w", err)
	}
	return &c, nil
}

func scanCycle(row pgx.Row) (*models.RemittanceCycle, error) {
	var c models.RemittanceCycle
	if err := row.Scan(&c.ID, &c.ContractID, &c.PeriodStart, &c.PeriodEnd, &c.Status,
		&c.TotalPrincipalMinor, &c.TotalInterestMinor, &c.TotalFeesMinor,
		&c.SuspenseMinor, &c.ServicerFeeMinor, &c.InvestorDueMinor,
		&c.CreatedAt, &c.LockedAt, &c.RemittedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
