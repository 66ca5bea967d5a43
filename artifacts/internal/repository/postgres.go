package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/models"
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

const artifactColumns = `
	id, ingestion_id, type, locator_uri, content_hash, hash_source,
	size_bytes, mime_type, source_meta, created_at`

// Create persists one artifact
func (r *PostgresRepository) Create(ctx context.Context, a *models.PaymentArtifact) error {
	query := `
		INSERT INTO payment_artifacts (` + artifactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.IngestionID, a.Type, a.LocatorURI, a.ContentHash, a.HashSource,
		a.SizeBytes, a.MIMEType, a.SourceMeta, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}

	return nil
}

// CreateBatch persists several artifacts in one transaction
func (r *PostgresRepository) CreateBatch(ctx context.Context, artifacts []*models.PaymentArtifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO payment_artifacts (` + artifactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, a := range artifacts {
		if _, err := tx.Exec(ctx, query,
			a.ID, a.IngestionID, a.Type, a.LocatorURI, a.ContentHash, a.HashSource,
			a.SizeBytes, a.MIMEType, a.SourceMeta, a.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create artifact %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// GetByID retrieves an artifact by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.PaymentArtifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM payment_artifacts WHERE id = $1`

	a := &models.PaymentArtifact{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.IngestionID, &a.Type, &a.LocatorURI, &a.ContentHash, &a.HashSource,
		&a.SizeBytes, &a.MIMEType, &a.SourceMeta, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	return a, nil
}

// GetByIngestion retrieves all artifacts belonging to an ingestion
func (r *PostgresRepository) GetByIngestion(ctx context.Context, ingestionID string) ([]*models.PaymentArtifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM payment_artifacts WHERE ingestion_id = $1 ORDER BY created_at`
	return r.scanMany(ctx, query, ingestionID)
}

// GetByIngestionAndType retrieves an ingestion's artifacts of one type
func (r *PostgresRepository) GetByIngestionAndType(ctx context.Context, ingestionID, artifactType string) ([]*models.PaymentArtifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM payment_artifacts WHERE ingestion_id = $1 AND type = $2 ORDER BY created_at`
	return r.scanMany(ctx, query, ingestionID, artifactType)
}

func (r *PostgresRepository) scanMany(ctx context.Context, query string, args ...any) ([]*models.PaymentArtifact, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.PaymentArtifact
	for rows.Next() {
		a := &models.PaymentArtifact{}
		if err := rows.Scan(
			&a.ID, &a.IngestionID, &a.Type, &a.LocatorURI, &a.ContentHash, &a.HashSource,
			&a.SizeBytes, &a.MIMEType, &a.SourceMeta, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifacts: %w", err)
	}

	return artifacts, nil
}

// DeleteByIngestion removes all artifacts belonging to an ingestion
func (r *PostgresRepository) DeleteByIngestion(ctx context.Context, ingestionID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payment_artifacts WHERE ingestion_id = $1`, ingestionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete artifacts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
