package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
)

// setupTestDatabase creates a PostgreSQL testcontainer and runs migrations
func setupTestDatabase(t *testing.T) (*PostgresRepository, func()) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("clearledger_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo, err := NewPostgresRepository(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create repository: %v", err)
	}

	cleanup := func() {
		repo.pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return repo, cleanup
}

// runMigrations runs SQL migrations from the migrations directory
func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationPath := filepath.Join("..", "..", "migrations", "001_init.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	return nil
}

func testIngestion(key string) *models.PaymentIngestion {
	return &models.PaymentIngestion{
		ID:                 uuid.Must(uuid.NewV7()).String(),
		Channel:            "ach",
		SourceReference:    "ACH-12345",
		RawPayload:         json.RawMessage(`{"trace":"021000021234567"}`),
		NormalizedEnvelope: json.RawMessage(`{"schema":"payment.ach.v1"}`),
		IdempotencyKey:     key,
		PayloadHash:        "a1b2c3",
		Method:             "ach",
		ValueDate:          time.Date(2025, 8, 24, 0, 0, 0, 0, time.UTC),
		AmountMinor:        150000,
		LoanID:             "loan-7",
		ReceivedAt:         time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestInsertOrGet(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	first := testIngestion("key-insert-or-get")
	stored, created, err := repo.InsertOrGet(ctx, first)
	if err != nil {
		t.Fatalf("InsertOrGet failed: %v", err)
	}
	if !created {
		t.Error("Expected first call to create the record")
	}
	if stored.ID != first.ID {
		t.Errorf("Expected stored ID %s, got %s", first.ID, stored.ID)
	}

	// Replay with the same key but a fresh ID: must return the winner.
	replay := testIngestion("key-insert-or-get")
	stored2, created2, err := repo.InsertOrGet(ctx, replay)
	if err != nil {
		t.Fatalf("InsertOrGet replay failed: %v", err)
	}
	if created2 {
		t.Error("Expected replay to be deduplicated")
	}
	if stored2.ID != first.ID {
		t.Errorf("Expected replay to return original ID %s, got %s", first.ID, stored2.ID)
	}
	if stored2.PayloadHash != first.PayloadHash {
		t.Errorf("Expected original payload hash %s, got %s", first.PayloadHash, stored2.PayloadHash)
	}
}

func TestGetByID(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	ing := testIngestion("key-get-by-id")
	if _, _, err := repo.InsertOrGet(ctx, ing); err != nil {
		t.Fatalf("InsertOrGet failed: %v", err)
	}

	got, err := repo.GetByID(ctx, ing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.AmountMinor != ing.AmountMinor {
		t.Errorf("Expected amount %d, got %d", ing.AmountMinor, got.AmountMinor)
	}
	if !got.ValueDate.Equal(ing.ValueDate) {
		t.Errorf("Expected value date %v, got %v", ing.ValueDate, got.ValueDate)
	}

	_, err = repo.GetByID(ctx, uuid.Must(uuid.NewV7()).String())
	if !errors.Is(err, ErrIngestionNotFound) {
		t.Errorf("Expected ErrIngestionNotFound, got %v", err)
	}
}

func TestGetByIdempotencyKey(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	ing := testIngestion("key-get-by-key")
	if _, _, err := repo.InsertOrGet(ctx, ing); err != nil {
		t.Fatalf("InsertOrGet failed: %v", err)
	}

	got, err := repo.GetByIdempotencyKey(ctx, "key-get-by-key")
	if err != nil {
		t.Fatalf("GetByIdempotencyKey failed: %v", err)
	}
	if got.ID != ing.ID {
		t.Errorf("Expected ID %s, got %s", ing.ID, got.ID)
	}

	_, err = repo.GetByIdempotencyKey(ctx, "no-such-key")
	if !errors.Is(err, ErrIngestionNotFound) {
		t.Errorf("Expected ErrIngestionNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ing := testIngestion(fmt.Sprintf("key-list-%d", i))
		if i == 2 {
			ing.Channel = "wire"
			ing.Method = "wire"
			ing.LoanID = "loan-9"
		}
		if _, _, err := repo.InsertOrGet(ctx, ing); err != nil {
			t.Fatalf("InsertOrGet failed: %v", err)
		}
	}

	all, total, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("Expected 3 ingestions, got total=%d len=%d", total, len(all))
	}

	wires, total, err := repo.List(ctx, ListFilter{Channel: "wire"})
	if err != nil {
		t.Fatalf("List by channel failed: %v", err)
	}
	if total != 1 || len(wires) != 1 {
		t.Errorf("Expected 1 wire ingestion, got total=%d len=%d", total, len(wires))
	}
	if wires[0].LoanID != "loan-9" {
		t.Errorf("Expected loan-9, got %s", wires[0].LoanID)
	}

	paged, total, err := repo.List(ctx, ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List with limit failed: %v", err)
	}
	if total != 3 || len(paged) != 2 {
		t.Errorf("Expected total=3 len=2, got total=%d len=%d", total, len(paged))
	}
}
