package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"parkspot/internal/db"
	"parkspot/internal/entities"
	apperrors "parkspot/internal/errors"
)

type BookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(database *sql.DB) *BookingRepository {
	return &BookingRepository{DB: database}
}

func (r *BookingRepository) FindAreaByName(ctx context.Context, name string) (*db.ParkingArea, error) {
	var area db.ParkingArea
	query := `
		SELECT id, name, city, address, latitude, longitude, price_per_hour
		FROM parking_areas WHERE name = $1`
	err := r.DB.QueryRowContext(ctx, query, name).Scan(
		&area.ID, &area.Name, &area.City, &area.Address,
		&area.Latitude, &area.Longitude, &area.PricePerHour,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("area %q: %w", name, apperrors.ErrAreaNotFound)
		}
		return nil, fmt.Errorf("error querying parking area: %w", err)
	}
	return &area, nil
}

// ListSlotsForArea returns the area's slots ordered by slot number so the
// scan always prefers the lowest-numbered free slot.
func (r *BookingRepository) ListSlotsForArea(ctx context.Context, areaID int) ([]db.ParkingSlot, error) {
	query := `SELECT id, area_id, slot_number FROM parking_slots WHERE area_id = $1 ORDER BY slot_number ASC`
	rows, err := r.DB.QueryContext(ctx, query, areaID)
	if err != nil {
		return nil, fmt.Errorf("error querying slots for area %d: %w", areaID, err)
	}
	defer rows.Close()

	var slots []db.ParkingSlot
	for rows.Next() {
		var s db.ParkingSlot
		if err := rows.Scan(&s.ID, &s.AreaID, &s.SlotNumber); err != nil {
			return nil, fmt.Errorf("error scanning slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating slot rows: %w", err)
	}
	return slots, nil
}

// FindOverlappingBooking returns a booking on the slot whose half-open
// interval overlaps [start, end), or (nil, nil) when the slot is free.
func (r *BookingRepository) FindOverlappingBooking(ctx context.Context, slotID int, start, end time.Time) (*db.Booking, error) {
	query := `
		SELECT id, code, user_id, slot_id, start_time, end_time, status
		FROM bookings
		WHERE slot_id = $1 AND start_time < $3 AND end_time > $2
		LIMIT 1`
	var b db.Booking
	err := r.DB.QueryRowContext(ctx, query, slotID, start, end).Scan(
		&b.ID, &b.Code, &b.UserID, &b.SlotID, &b.StartTime, &b.EndTime, &b.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying overlapping booking: %w", err)
	}
	return &b, nil
}

func (r *BookingRepository) ListBookingsEndingAfter(ctx context.Context, slotID int, after time.Time) ([]db.Booking, error) {
	query := `
		SELECT id, code, user_id, slot_id, start_time, end_time, status
		FROM bookings
		WHERE slot_id = $1 AND end_time > $2
		ORDER BY start_time ASC`
	rows, err := r.DB.QueryContext(ctx, query, slotID, after)
	if err != nil {
		return nil, fmt.Errorf("error querying bookings for slot %d: %w", slotID, err)
	}
	defer rows.Close()

	var bookings []db.Booking
	for rows.Next() {
		var b db.Booking
		if err := rows.Scan(&b.ID, &b.Code, &b.UserID, &b.SlotID, &b.StartTime, &b.EndTime, &b.Status); err != nil {
			return nil, fmt.Errorf("error scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating booking rows: %w", err)
	}
	return bookings, nil
}

// ReserveSlot re-checks the overlap and inserts the booking inside a single
// serializable transaction, so a concurrent reservation of the same slot and
// window makes exactly one of the two transactions fail. Serialization
// aborts and exclusion-constraint violations surface as ErrSlotConflict.
func (r *BookingRepository) ReserveSlot(ctx context.Context, booking *db.Booking) error {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("error beginning reserve transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var conflicting int
	checkQuery := `
		SELECT COUNT(*) FROM bookings
		WHERE slot_id = $1 AND start_time < $3 AND end_time > $2`
	err = tx.QueryRowContext(ctx, checkQuery, booking.SlotID, booking.StartTime, booking.EndTime).Scan(&conflicting)
	if err != nil {
		return fmt.Errorf("error re-checking overlap in transaction: %w", err)
	}
	if conflicting > 0 {
		return apperrors.ErrSlotConflict
	}

	insertQuery := `
		INSERT INTO bookings
		(code, user_id, slot_id, start_time, end_time, vehicle_number, amount,
		 payment_id, payment_status, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, insertQuery,
		booking.Code,
		booking.UserID,
		booking.SlotID,
		booking.StartTime,
		booking.EndTime,
		booking.VehicleNumber,
		booking.Amount,
		booking.PaymentID,
		booking.PaymentStatus,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return wrapReserveError(err)
	}

	if err := tx.Commit(); err != nil {
		return wrapReserveError(err)
	}
	return nil
}

func wrapReserveError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "23P01": // serialization_failure, exclusion_violation
			return fmt.Errorf("%w: %s", apperrors.ErrSlotConflict, pqErr.Code)
		}
	}
	return fmt.Errorf("error reserving slot: %w", err)
}

func (r *BookingRepository) FindBookingByID(ctx context.Context, id int) (*db.Booking, error) {
	var b db.Booking
	query := `
		SELECT id, code, user_id, slot_id, start_time, end_time, vehicle_number,
		       amount, payment_id, payment_status, status, stripe_session_id,
		       created_at, updated_at
		FROM bookings WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.Code, &b.UserID, &b.SlotID, &b.StartTime, &b.EndTime,
		&b.VehicleNumber, &b.Amount, &b.PaymentID, &b.PaymentStatus,
		&b.Status, &b.StripeSessionID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
		}
		return nil, fmt.Errorf("error querying booking: %w", err)
	}
	return &b, nil
}

func (r *BookingRepository) FindBookingDetail(ctx context.Context, id int) (*entities.HistoryEntry, error) {
	var e entities.HistoryEntry
	query := `
		SELECT b.id, b.user_id, b.code, pa.name, pa.city, ps.slot_number,
		       b.start_time, b.end_time, b.vehicle_number, b.amount,
		       b.payment_status, b.status, b.created_at
		FROM bookings b
		JOIN parking_slots ps ON b.slot_id = ps.id
		JOIN parking_areas pa ON ps.area_id = pa.id
		WHERE b.id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.BookingID, &e.UserID, &e.Code, &e.Area, &e.City, &e.SlotNumber,
		&e.StartTime, &e.EndTime, &e.VehicleNumber, &e.Amount,
		&e.PaymentStatus, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
		}
		return nil, fmt.Errorf("error querying booking detail: %w", err)
	}
	return &e, nil
}

// DeleteBooking hard-deletes the booking, which immediately frees its slot
// and time window for future scans.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
	}
	return nil
}

// UpdateBookingStatus is a compare-and-set: the update only applies when the
// row is still in the expected state, so a concurrent transition cannot be
// silently overwritten.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, id int, from, to string) error {
	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := r.DB.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("error updating booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %d no longer %s: %w", id, from, apperrors.ErrInvalidTransition)
	}
	return nil
}

func (r *BookingRepository) MarkBookingPaid(ctx context.Context, id int, paymentID string) error {
	query := `
		UPDATE bookings
		SET payment_id = $1, payment_status = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`
	result, err := r.DB.ExecContext(ctx, query, paymentID, db.PaymentPaid, db.StatusConfirmed, id, db.StatusPending)
	if err != nil {
		return fmt.Errorf("error marking booking paid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %d is not pending: %w", id, apperrors.ErrInvalidTransition)
	}
	return nil
}

func (r *BookingRepository) MarkPaymentFailed(ctx context.Context, id int) error {
	query := `UPDATE bookings SET payment_status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.DB.ExecContext(ctx, query, db.PaymentFailed, id)
	if err != nil {
		return fmt.Errorf("error marking payment failed: %w", err)
	}
	return nil
}

// SetStripeSession records the checkout session created for a booking so the
// webhook can find it later.
func (r *BookingRepository) SetStripeSession(ctx context.Context, id int, sessionID string) error {
	query := `UPDATE bookings SET stripe_session_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.DB.ExecContext(ctx, query, sessionID, id)
	if err != nil {
		return fmt.Errorf("error storing stripe session: %w", err)
	}
	return nil
}

func (r *BookingRepository) FindBookingByStripeSession(ctx context.Context, sessionID string) (*db.Booking, error) {
	var b db.Booking
	query := `
		SELECT id, code, user_id, slot_id, start_time, end_time, vehicle_number,
		       amount, payment_id, payment_status, status, stripe_session_id,
		       created_at, updated_at
		FROM bookings WHERE stripe_session_id = $1`
	err := r.DB.QueryRowContext(ctx, query, sessionID).Scan(
		&b.ID, &b.Code, &b.UserID, &b.SlotID, &b.StartTime, &b.EndTime,
		&b.VehicleNumber, &b.Amount, &b.PaymentID, &b.PaymentStatus,
		&b.Status, &b.StripeSessionID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no booking for session %q: %w", sessionID, apperrors.ErrBookingNotFound)
		}
		return nil, fmt.Errorf("error querying booking by session: %w", err)
	}
	return &b, nil
}
