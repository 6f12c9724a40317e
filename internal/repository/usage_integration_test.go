package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/animatepdf/animatepdf/internal"
	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/repository"
)

// These tests exercise the real upsert-increment SQL against Postgres. They
// only run when TEST_DATABASE_URL is set, e.g.
//
//	TEST_DATABASE_URL=postgres://localhost:5432/animatepdf_test go test ./internal/repository/
func openTestStore(t *testing.T) *repository.Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.PingContext(context.Background()); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	if err := internal.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return repository.New(db)
}

// =============================================================================
// Upsert-Increment Tests
// =============================================================================

// Concurrent recordings must never lose updates: the increment happens inside
// one INSERT ... ON CONFLICT DO UPDATE statement, so N concurrent calls leave
// the pooled counter at exactly N.
func TestIncrementUsage_ConcurrentCallsLoseNoUpdates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	userID := uuid.New()
	monthYear := "2024-06"

	const workers = 25
	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		kind := domain.UsageKindPDF
		if i%2 == 1 {
			kind = domain.UsageKindAnimation
		}
		wg.Add(1)
		go func(kind domain.UsageKind) {
			defer wg.Done()
			if _, err := store.IncrementUsage(ctx, userID, monthYear, kind); err != nil {
				errCh <- err
			}
		}(kind)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("increment failed: %v", err)
	}

	usage, err := store.GetUsage(ctx, userID, monthYear)
	if err != nil {
		t.Fatalf("failed to read usage: %v", err)
	}
	if got := usage.TotalCredits(); got != workers {
		t.Errorf("expected pooled total %d, got %d (lost updates)", workers, got)
	}
	if usage.PDFsProcessed != 13 || usage.AnimationsCreated != 12 {
		t.Errorf("expected 13 pdf / 12 animation, got %d / %d",
			usage.PDFsProcessed, usage.AnimationsCreated)
	}
}

func TestIncrementUsage_CreatesRowLazily(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	userID := uuid.New()
	monthYear := "2024-06"

	_, err := store.GetUsage(ctx, userID, monthYear)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows before first increment, got %v", err)
	}

	usage, err := store.IncrementUsage(ctx, userID, monthYear, domain.UsageKindPDF)
	if err != nil {
		t.Fatalf("first increment failed: %v", err)
	}
	if usage.PDFsProcessed != 1 || usage.AnimationsCreated != 0 {
		t.Errorf("expected 1/0 on the fresh row, got %d/%d",
			usage.PDFsProcessed, usage.AnimationsCreated)
	}

	// The second increment must hit the same row, not create another
	usage, err = store.IncrementUsage(ctx, userID, monthYear, domain.UsageKindAnimation)
	if err != nil {
		t.Fatalf("second increment failed: %v", err)
	}
	if usage.TotalCredits() != 2 {
		t.Errorf("expected pooled total 2, got %d", usage.TotalCredits())
	}
}

func TestIncrementUsage_OneRowPerUserAndMonth(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := store.IncrementUsage(ctx, userID, "2024-06", domain.UsageKindPDF); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if _, err := store.IncrementUsage(ctx, userID, "2024-06", domain.UsageKindPDF); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if _, err := store.IncrementUsage(ctx, userID, "2024-07", domain.UsageKindPDF); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	june, err := store.GetUsage(ctx, userID, "2024-06")
	if err != nil {
		t.Fatalf("failed to read June: %v", err)
	}
	july, err := store.GetUsage(ctx, userID, "2024-07")
	if err != nil {
		t.Fatalf("failed to read July: %v", err)
	}
	if june.TotalCredits() != 2 {
		t.Errorf("expected 2 credits in June, got %d", june.TotalCredits())
	}
	if july.TotalCredits() != 1 {
		t.Errorf("expected a fresh ledger row in July with 1 credit, got %d", july.TotalCredits())
	}
}

func TestResetUsage_ZeroesCounters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	userID := uuid.New()
	monthYear := "2024-06"

	if _, err := store.IncrementUsage(ctx, userID, monthYear, domain.UsageKindPDF); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if _, err := store.AddStorageUsage(ctx, userID, monthYear, 1.5); err != nil {
		t.Fatalf("storage metering failed: %v", err)
	}

	if err := store.ResetUsage(ctx, userID, monthYear); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	usage, err := store.GetUsage(ctx, userID, monthYear)
	if err != nil {
		t.Fatalf("failed to read usage: %v", err)
	}
	if usage.TotalCredits() != 0 || usage.StorageUsedMB != 0 {
		t.Errorf("expected zeroed counters, got %d credits / %.1f MB",
			usage.TotalCredits(), usage.StorageUsedMB)
	}
}
