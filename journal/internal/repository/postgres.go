package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearledger-systems/clearledger-stack/journal/internal/models"
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

// AppendEvent inserts an event with the next sequence number in its
// correlation chain. The service holds the chain lock across tail read and
// insert, so the subquery cannot race another appender on the same scope.
func (r *PostgresRepository) AppendEvent(ctx context.Context, e *models.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (
			id, correlation_id, sequence_num, event_type, data,
			actor_type, actor_id, hash, prev_hash, created_at
		)
		VALUES (
			$1, $2,
			COALESCE((SELECT MAX(sequence_num) FROM payment_events WHERE correlation_id = $2), 0) + 1,
			$3, $4, $5, $6, $7, $8, $9
		)
		RETURNING sequence_num
	`

	err := r.pool.QueryRow(ctx, query,
		e.ID, e.CorrelationID, e.EventType, e.Data,
		e.ActorType, e.ActorID, e.Hash, e.PrevHash, e.CreatedAt,
	).Scan(&e.SequenceNum)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// EventTail returns the hash of the last event in a correlation chain, or
// nil for an empty chain.
func (r *PostgresRepository) EventTail(ctx context.Context, correlationID string) (*string, error) {
	query := `
		SELECT hash FROM payment_events
		WHERE correlation_id = $1
		ORDER BY sequence_num DESC
		LIMIT 1
	`

	var hash string
	err := r.pool.QueryRow(ctx, query, correlationID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event tail: %w", err)
	}
	return &hash, nil
}

// ListEvents returns a correlation chain in insertion order
func (r *PostgresRepository) ListEvents(ctx context.Context, correlationID string) ([]*models.PaymentEvent, error) {
	query := `
		SELECT id, correlation_id, sequence_num, event_type, data,
		       actor_type, actor_id, hash, prev_hash, created_at
		FROM payment_events
		WHERE correlation_id = $1
		ORDER BY sequence_num
	`

	rows, err := r.pool.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.PaymentEvent
	for rows.Next() {
		e := &models.PaymentEvent{}
		if err := rows.Scan(
			&e.ID, &e.CorrelationID, &e.SequenceNum, &e.EventType, &e.Data,
			&e.ActorType, &e.ActorID, &e.Hash, &e.PrevHash, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// ListCorrelations returns distinct correlation ids with chains, newest first
func (r *PostgresRepository) ListCorrelations(ctx context.Context, limit, offset int) ([]string, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT correlation_id) FROM payment_events`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count correlations: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT correlation_id
		FROM payment_events
		GROUP BY correlation_id
		ORDER BY MAX(created_at) DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list correlations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("failed to scan correlation: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate correlations: %w", err)
	}

	return ids, total, nil
}

// AppendAudit inserts an audit entry with the next global sequence number
func (r *PostgresRepository) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (
			id, sequence_num, action, data, actor_type, actor_id,
			hash, prev_hash, created_at
		)
		VALUES (
			$1,
			COALESCE((SELECT MAX(sequence_num) FROM audit_log), 0) + 1,
			$2, $3, $4, $5, $6, $7, $8
		)
		RETURNING sequence_num
	`

	err := r.pool.QueryRow(ctx, query,
		entry.ID, entry.Action, entry.Data, entry.ActorType, entry.ActorID,
		entry.Hash, entry.PrevHash, entry.CreatedAt,
	).Scan(&entry.SequenceNum)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// AuditTail returns the hash of the last audit entry, or nil when empty
func (r *PostgresRepository) AuditTail(ctx context.Context) (*string, error) {
	var hash string
	err := r.pool.QueryRow(ctx,
		`SELECT hash FROM audit_log ORDER BY sequence_num DESC LIMIT 1`,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get audit tail: %w", err)
	}
	return &hash, nil
}

// ListAudit returns a page of audit entries in insertion order with a total
func (r *PostgresRepository) ListAudit(ctx context.Context, limit, offset int) ([]*models.AuditEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	entries, err := r.scanAudit(ctx, `
		SELECT id, sequence_num, action, data, actor_type, actor_id,
		       hash, prev_hash, created_at
		FROM audit_log
		ORDER BY sequence_num
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListAuditAll returns the full audit chain in insertion order, for
// verification and rebuild walks.
func (r *PostgresRepository) ListAuditAll(ctx context.Context) ([]*models.AuditEntry, error) {
	return r.scanAudit(ctx, `
		SELECT id, sequence_num, action, data, actor_type, actor_id,
		       hash, prev_hash, created_at
		FROM audit_log
		ORDER BY sequence_num
	`)
}

func (r *PostgresRepository) scanAudit(ctx context.Context, query string, args ...any) ([]*models.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		if err := rows.Scan(
			&e.ID, &e.SequenceNum, &e.Action, &e.Data, &e.ActorType, &e.ActorID,
			&e.Hash, &e.PrevHash, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
