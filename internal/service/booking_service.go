package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkspot/internal/db"
	"parkspot/internal/entities"
	apperrors "parkspot/internal/errors"
	"parkspot/internal/metrics"
)

// lockWait bounds how long a booking request may wait for its area lock.
const lockWait = 5 * time.Second

var vehiclePlateRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{2,15}$`)

// BookingStore is the persistence boundary the booking core depends on.
// FindOverlappingBooking returns (nil, nil) when no conflict exists.
// ReserveSlot must re-check the overlap and insert atomically, returning
// ErrSlotConflict when it loses a race. UpdateBookingStatus is a
// compare-and-set on the lifecycle status, returning ErrInvalidTransition
// when the row was no longer in the expected state.
type BookingStore interface {
	FindAreaByName(ctx context.Context, name string) (*db.ParkingArea, error)
	ListSlotsForArea(ctx context.Context, areaID int) ([]db.ParkingSlot, error)
	FindOverlappingBooking(ctx context.Context, slotID int, start, end time.Time) (*db.Booking, error)
	ListBookingsEndingAfter(ctx context.Context, slotID int, after time.Time) ([]db.Booking, error)
	ReserveSlot(ctx context.Context, booking *db.Booking) error
	FindBookingByID(ctx context.Context, id int) (*db.Booking, error)
	FindBookingDetail(ctx context.Context, id int) (*entities.HistoryEntry, error)
	DeleteBooking(ctx context.Context, id int) error
	UpdateBookingStatus(ctx context.Context, id int, from, to string) error
	MarkBookingPaid(ctx context.Context, id int, paymentID string) error
	MarkPaymentFailed(ctx context.Context, id int) error
}

// Notifier delivers booking status updates to the user (email/SMS).
type Notifier interface {
	BookingStatusChanged(booking entities.HistoryEntry, status string)
}

type BookingService struct {
	store    BookingStore
	locks    *areaLockTable
	notifier Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewBookingService(store BookingStore, notifier Notifier, m *metrics.Metrics, log zerolog.Logger) *BookingService {
	return &BookingService{
		store:    store,
		locks:    newAreaLockTable(),
		notifier: notifier,
		metrics:  m,
		log:      log,
	}
}

// CreateBooking finds the lowest-numbered free slot in the requested area for
// the [start, end) window and reserves it. The scan and insert run under the
// per-area lock, and the insert itself re-checks the overlap in a
// serializable transaction, so two concurrent requests can never both claim
// the last free slot. A fully booked area is a normal outcome, reported as
// OutcomeUnavailable rather than an error.
func (s *BookingService) CreateBooking(ctx context.Context, req *entities.BookingRequest) (*entities.BookingResult, error) {
	if err := validateBookingRequest(req); err != nil {
		return nil, err
	}
	started := time.Now()

	area, err := s.store.FindAreaByName(ctx, req.Area)
	if err != nil {
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	release, err := s.locks.Acquire(lockCtx, area.ID)
	if err != nil {
		s.metrics.BookingConflicts.Inc()
		return nil, err
	}
	defer release()

	// One retry: a conflict here means another process grabbed the slot
	// between our scan and insert, so a fresh scan may still find room.
	var booking *db.Booking
	var slot *db.ParkingSlot
	for attempt := 0; attempt < 2; attempt++ {
		booking, slot, err = s.reserveFirstFreeSlot(ctx, area, req)
		if err == nil || !errors.Is(err, apperrors.ErrSlotConflict) {
			break
		}
		s.log.Warn().Str("area", area.Name).Int("attempt", attempt+1).Msg("reservation lost a race, rescanning")
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrSlotConflict) {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, err
	}
	if slot == nil {
		s.metrics.BookingUnavailable.Inc()
		return &entities.BookingResult{Status: entities.OutcomeUnavailable}, nil
	}

	s.metrics.BookingsCreated.WithLabelValues(area.Name).Inc()
	s.metrics.BookingDuration.Observe(time.Since(started).Seconds())
	s.log.Info().
		Str("area", area.Name).
		Int("slot_number", slot.SlotNumber).
		Int("booking_id", booking.ID).
		Time("start", booking.StartTime).
		Time("end", booking.EndTime).
		Msg("booking created")

	return &entities.BookingResult{
		Status: entities.OutcomeBooked,
		Booking: &entities.BookingResponse{
			BookingID:     booking.ID,
			Code:          booking.Code,
			SlotID:        slot.ID,
			SlotNumber:    slot.SlotNumber,
			Area:          area.Name,
			City:          area.City,
			StartTime:     booking.StartTime,
			EndTime:       booking.EndTime,
			VehicleNumber: booking.VehicleNumber,
			Amount:        booking.Amount,
			PaymentStatus: booking.PaymentStatus,
			Status:        booking.Status,
			CreatedAt:     booking.CreatedAt,
		},
	}, nil
}

// reserveFirstFreeSlot scans the area's slots in slot-number order and
// reserves the first one with no overlapping booking. A nil slot with nil
// error means every slot conflicted.
func (s *BookingService) reserveFirstFreeSlot(ctx context.Context, area *db.ParkingArea, req *entities.BookingRequest) (*db.Booking, *db.ParkingSlot, error) {
	slots, err := s.store.ListSlotsForArea(ctx, area.ID)
	if err != nil {
		return nil, nil, err
	}

	for i := range slots {
		slot := &slots[i]
		conflict, err := s.store.FindOverlappingBooking(ctx, slot.ID, req.StartTime, req.EndTime)
		if err != nil {
			return nil, nil, err
		}
		if conflict != nil {
			continue
		}

		booking := &db.Booking{
			Code:          uuid.NewString(),
			UserID:        req.UserID,
			SlotID:        slot.ID,
			StartTime:     req.StartTime.UTC(),
			EndTime:       req.EndTime.UTC(),
			VehicleNumber: req.VehicleNumber,
			Amount:        req.Amount,
			PaymentStatus: db.PaymentPending,
			Status:        db.StatusPending,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		}
		if req.PaymentID != "" {
			booking.PaymentID = sql.NullString{String: req.PaymentID, Valid: true}
		}
		if err := s.store.ReserveSlot(ctx, booking); err != nil {
			return nil, nil, err
		}
		return booking, slot, nil
	}
	return nil, nil, nil
}

// CheckAvailability reports per-slot availability for a window without
// reserving anything. The overlap test runs here rather than in SQL so the
// half-open semantics match the reservation path exactly.
func (s *BookingService) CheckAvailability(ctx context.Context, areaName string, start, end time.Time) (*entities.AvailabilityResponse, error) {
	if !end.After(start) {
		return nil, apperrors.NewValidationError("end_time", "must be after start_time")
	}
	area, err := s.store.FindAreaByName(ctx, areaName)
	if err != nil {
		return nil, err
	}
	slots, err := s.store.ListSlotsForArea(ctx, area.ID)
	if err != nil {
		return nil, err
	}

	resp := &entities.AvailabilityResponse{
		Area:               area.Name,
		RequestedStartTime: start,
		RequestedEndTime:   end,
	}
	for _, slot := range slots {
		bookings, err := s.store.ListBookingsEndingAfter(ctx, slot.ID, start)
		if err != nil {
			return nil, err
		}
		free := true
		for _, b := range bookings {
			if Overlaps(b.StartTime, b.EndTime, start, end) {
				free = false
				break
			}
		}
		if free {
			resp.FreeSlots++
		}
		resp.SlotDetails = append(resp.SlotDetails, entities.SlotAvailability{
			SlotID:      slot.ID,
			SlotNumber:  slot.SlotNumber,
			IsAvailable: free,
		})
	}
	resp.IsOverallAvailable = resp.FreeSlots > 0
	return resp, nil
}

// CancelBooking hard-deletes a booking, immediately freeing its slot and
// window. Only pending and confirmed bookings may be cancelled.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int) error {
	booking, err := s.store.FindBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := Transition(booking.Status, db.StatusCancelled); err != nil {
		return err
	}

	detail, err := s.store.FindBookingDetail(ctx, bookingID)
	if err != nil {
		s.log.Warn().Err(err).Int("booking_id", bookingID).Msg("could not load booking detail for cancellation notice")
		detail = nil
	}

	if err := s.store.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}
	s.metrics.BookingsCancelled.Inc()
	s.log.Info().Int("booking_id", bookingID).Msg("booking cancelled")

	if s.notifier != nil && detail != nil {
		s.notifier.BookingStatusChanged(*detail, db.StatusCancelled)
	}
	return nil
}

// ConfirmPayment records a verified payment reference and moves the booking
// from pending to confirmed. The caller is trusted to have verified the
// payment with the gateway already.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID int, paymentRef string) error {
	if paymentRef == "" {
		return apperrors.NewValidationError("payment_reference", "must not be empty")
	}
	booking, err := s.store.FindBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := Transition(booking.Status, db.StatusConfirmed); err != nil {
		return err
	}
	if err := s.store.MarkBookingPaid(ctx, bookingID, paymentRef); err != nil {
		return err
	}
	s.log.Info().Int("booking_id", bookingID).Str("payment_id", paymentRef).Msg("payment confirmed")
	s.notifyStatus(ctx, bookingID, db.StatusConfirmed)
	return nil
}

// FailPayment marks the booking's payment as failed without touching the
// lifecycle status; the purge job will reclaim the slot if no retry arrives.
func (s *BookingService) FailPayment(ctx context.Context, bookingID int) error {
	if _, err := s.store.FindBookingByID(ctx, bookingID); err != nil {
		return err
	}
	return s.store.MarkPaymentFailed(ctx, bookingID)
}

// RegisterEntry moves a confirmed booking to active on a gate-entry signal.
func (s *BookingService) RegisterEntry(ctx context.Context, bookingID int) error {
	return s.applyTransition(ctx, bookingID, db.StatusActive)
}

// RegisterExit moves an active booking to completed on a gate-exit signal.
func (s *BookingService) RegisterExit(ctx context.Context, bookingID int) error {
	return s.applyTransition(ctx, bookingID, db.StatusCompleted)
}

func (s *BookingService) applyTransition(ctx context.Context, bookingID int, to string) error {
	booking, err := s.store.FindBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := Transition(booking.Status, to); err != nil {
		return err
	}
	if err := s.store.UpdateBookingStatus(ctx, bookingID, booking.Status, to); err != nil {
		return err
	}
	s.log.Info().Int("booking_id", bookingID).Str("from", booking.Status).Str("to", to).Msg("booking status changed")
	return nil
}

// GetBooking returns a booking denormalized with its slot and area.
func (s *BookingService) GetBooking(ctx context.Context, bookingID int) (*entities.HistoryEntry, error) {
	return s.store.FindBookingDetail(ctx, bookingID)
}

func (s *BookingService) notifyStatus(ctx context.Context, bookingID int, status string) {
	if s.notifier == nil {
		return
	}
	detail, err := s.store.FindBookingDetail(ctx, bookingID)
	if err != nil {
		s.log.Warn().Err(err).Int("booking_id", bookingID).Msg("could not load booking detail for notification")
		return
	}
	s.notifier.BookingStatusChanged(*detail, status)
}

func validateBookingRequest(req *entities.BookingRequest) error {
	if req.Area == "" {
		return apperrors.NewValidationError("area", "must not be empty")
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return apperrors.NewValidationError("time_window", "start_time and end_time are required")
	}
	if !req.EndTime.After(req.StartTime) {
		return apperrors.NewValidationError("end_time", "must be after start_time")
	}
	if !vehiclePlateRe.MatchString(req.VehicleNumber) {
		return apperrors.NewValidationError("vehicle_number", fmt.Sprintf("%q is not a plausible plate", req.VehicleNumber))
	}
	if req.Amount <= 0 {
		return apperrors.NewValidationError("amount", "must be positive")
	}
	return nil
}
