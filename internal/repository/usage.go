package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/animatepdf/animatepdf/internal/domain"
)

const usageColumns = `id, user_id, month_year, pdfs_processed, animations_created,
	storage_used_mb, created_at, updated_at`

func scanUsage(row interface{ Scan(...any) error }) (domain.UserUsage, error) {
	var u domain.UserUsage
	err := row.Scan(
		&u.ID,
		&u.UserID,
		&u.MonthYear,
		&u.PDFsProcessed,
		&u.AnimationsCreated,
		&u.StorageUsedMB,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// GetUsage returns the ledger row for the given user and month.
// Returns sql.ErrNoRows when the row has not been created yet; callers treat
// that as zero usage.
func (s *Store) GetUsage(ctx context.Context, userID uuid.UUID, monthYear string) (domain.UserUsage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+usageColumns+`
		FROM user_usage
		WHERE user_id = $1 AND month_year = $2`, userID, monthYear)
	return scanUsage(row)
}

// IncrementUsage advances the counter for the given work kind by exactly one,
// creating the month's row first if it does not exist. The increment happens
// in the database so concurrent requests never lose updates. Returns the row
// after the increment.
func (s *Store) IncrementUsage(ctx context.Context, userID uuid.UUID, monthYear string, kind domain.UsageKind) (domain.UserUsage, error) {
	var column string
	switch kind {
	case domain.UsageKindPDF:
		column = "pdfs_processed"
	case domain.UsageKindAnimation:
		column = "animations_created"
	default:
		return domain.UserUsage{}, fmt.Errorf("unknown usage kind %q", kind)
	}

	// column is one of two fixed identifiers, never caller input
	query := fmt.Sprintf(`
		INSERT INTO user_usage (id, user_id, month_year, %[1]s)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, month_year) DO UPDATE SET
			%[1]s = user_usage.%[1]s + 1,
			updated_at = now()
		RETURNING `+usageColumns, column)

	row := s.db.QueryRowContext(ctx, query, uuid.New(), userID, monthYear)
	return scanUsage(row)
}

// AddStorageUsage adds the given number of megabytes to the month's storage
// counter, creating the row if needed.
func (s *Store) AddStorageUsage(ctx context.Context, userID uuid.UUID, monthYear string, mb float64) (domain.UserUsage, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_usage (id, user_id, month_year, storage_used_mb)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, month_year) DO UPDATE SET
			storage_used_mb = user_usage.storage_used_mb + EXCLUDED.storage_used_mb,
			updated_at = now()
		RETURNING `+usageColumns, uuid.New(), userID, monthYear, mb)
	return scanUsage(row)
}

// ResetUsage zeroes the counters on the given month's row. This is the
// administrative reset; it is the only path that ever decrements the ledger.
// Missing rows are a no-op, since a missing row already reads as zero usage.
func (s *Store) ResetUsage(ctx context.Context, userID uuid.UUID, monthYear string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_usage
		SET pdfs_processed = 0, animations_created = 0, storage_used_mb = 0, updated_at = now()
		WHERE user_id = $1 AND month_year = $2`, userID, monthYear)
	return err
}
