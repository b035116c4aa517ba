package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parkspot/internal/db"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

// DeleteStalePendingBookings removes pending bookings created before the
// cutoff whose payment never completed, releasing their slots and windows.
func (r *JobRepository) DeleteStalePendingBookings(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM bookings
		WHERE status = $1 AND payment_status <> $2 AND created_at < $3`
	result, err := r.DB.ExecContext(ctx, query, db.StatusPending, db.PaymentPaid, before)
	if err != nil {
		return 0, fmt.Errorf("error deleting stale pending bookings: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading rows affected: %w", err)
	}
	return rows, nil
}
