package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
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

const ingestionColumns = `
	id, channel, source_reference, raw_payload, normalized_envelope,
	idempotency_key, payload_hash, method, value_date, amount_minor,
	loan_id, received_at`

// InsertOrGet races the unique index on idempotency_key. Exactly one caller
// wins the insert; everyone else reads the winner's row back.
func (r *PostgresRepository) InsertOrGet(ctx context.Context, ing *models.PaymentIngestion) (*models.PaymentIngestion, bool, error) {
	query := `
		INSERT INTO payment_ingestions (` + ingestionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING ` + ingestionColumns

	stored := &models.PaymentIngestion{}
	err := r.pool.QueryRow(ctx, query,
		ing.ID, ing.Channel, ing.SourceReference, ing.RawPayload, ing.NormalizedEnvelope,
		ing.IdempotencyKey, ing.PayloadHash, ing.Method, ing.ValueDate, ing.AmountMinor,
		ing.LoanID, ing.ReceivedAt,
	).Scan(
		&stored.ID, &stored.Channel, &stored.SourceReference, &stored.RawPayload, &stored.NormalizedEnvelope,
		&stored.IdempotencyKey, &stored.PayloadHash, &stored.Method, &stored.ValueDate, &stored.AmountMinor,
		&stored.LoanID, &stored.ReceivedAt,
	)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert ingestion: %w", err)
	}

	existing, err := r.GetByIdempotencyKey(ctx, ing.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves an ingestion by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.PaymentIngestion, error) {
	query := `SELECT ` + ingestionColumns + ` FROM payment_ingestions WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetByIdempotencyKey retrieves an ingestion by its idempotency key
func (r *PostgresRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIngestion, error) {
	query := `SELECT ` + ingestionColumns + ` FROM payment_ingestions WHERE idempotency_key = $1`
	return r.scanOne(ctx, query, key)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, arg any) (*models.PaymentIngestion, error) {
	ing := &models.PaymentIngestion{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ing.ID, &ing.Channel, &ing.SourceReference, &ing.RawPayload, &ing.NormalizedEnvelope,
		&ing.IdempotencyKey, &ing.PayloadHash, &ing.Method, &ing.ValueDate, &ing.AmountMinor,
		&ing.LoanID, &ing.ReceivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIngestionNotFound
		}
		return nil, fmt.Errorf("failed to get ingestion: %w", err)
	}
	return ing, nil
}

// List retrieves ingestions matching the filter with a total count
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.PaymentIngestion, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if filter.LoanID != "" {
		where += fmt.Sprintf(" AND loan_id = $%d", argNum)
		args = append(args, filter.LoanID)
		argNum++
	}
	if filter.Channel != "" {
		where += fmt.Sprintf(" AND channel = $%d", argNum)
		args = append(args, filter.Channel)
		argNum++
	}
	if !filter.From.IsZero() {
		where += fmt.Sprintf(" AND received_at >= $%d", argNum)
		args = append(args, filter.From)
		argNum++
	}
	if !filter.To.IsZero() {
		where += fmt.Sprintf(" AND received_at < $%d", argNum)
		args = append(args, filter.To)
		argNum++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM payment_ingestions` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ingestions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + ingestionColumns + ` FROM payment_ingestions` + where +
		fmt.Sprintf(" ORDER BY received_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ingestions: %w", err)
	}
	defer rows.Close()

	var ingestions []*models.PaymentIngestion
	for rows.Next() {
		ing := &models.PaymentIngestion{}
		if err := rows.Scan(
			&ing.ID, &ing.Channel, &ing.SourceReference, &ing.RawPayload, &ing.NormalizedEnvelope,
			&ing.IdempotencyKey, &ing.PayloadHash, &ing.Method, &ing.ValueDate, &ing.AmountMinor,
			&ing.LoanID, &ing.ReceivedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan ingestion: %w", err)
		}
		ingestions = append(ingestions, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate ingestions: %w", err)
	}

	return ingestions, total, nil
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
