package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parkspot/internal/entities"
	apperrors "parkspot/internal/errors"
)

type HistoryRepository struct {
	DB *sql.DB
}

func NewHistoryRepository(database *sql.DB) *HistoryRepository {
	return &HistoryRepository{DB: database}
}

const historySelect = `
	SELECT b.id, b.user_id, b.code, pa.name, pa.city, ps.slot_number,
	       b.start_time, b.end_time, b.vehicle_number, b.amount,
	       b.payment_status, b.status, b.created_at
	FROM bookings b
	JOIN parking_slots ps ON b.slot_id = ps.id
	JOIN parking_areas pa ON ps.area_id = pa.id`

// LatestBookingForUser returns the user's most recently created booking,
// which backs the ticket view.
func (r *HistoryRepository) LatestBookingForUser(ctx context.Context, userID int) (*entities.HistoryEntry, error) {
	var e entities.HistoryEntry
	query := historySelect + `
	WHERE b.user_id = $1
	ORDER BY b.created_at DESC
	LIMIT 1`
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&e.BookingID, &e.UserID, &e.Code, &e.Area, &e.City, &e.SlotNumber,
		&e.StartTime, &e.EndTime, &e.VehicleNumber, &e.Amount,
		&e.PaymentStatus, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no bookings for user %d: %w", userID, apperrors.ErrBookingNotFound)
		}
		return nil, fmt.Errorf("error querying latest booking: %w", err)
	}
	return &e, nil
}

// HistoryForUser returns all of the user's bookings, newest first.
func (r *HistoryRepository) HistoryForUser(ctx context.Context, userID int) ([]entities.HistoryEntry, error) {
	query := historySelect + `
	WHERE b.user_id = $1
	ORDER BY b.created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying booking history: %w", err)
	}
	defer rows.Close()

	var history []entities.HistoryEntry
	for rows.Next() {
		var e entities.HistoryEntry
		err := rows.Scan(
			&e.BookingID, &e.UserID, &e.Code, &e.Area, &e.City, &e.SlotNumber,
			&e.StartTime, &e.EndTime, &e.VehicleNumber, &e.Amount,
			&e.PaymentStatus, &e.Status, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning history entry: %w", err)
		}
		history = append(history, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating history rows: %w", err)
	}
	return history, nil
}
