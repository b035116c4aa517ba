package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspot/internal/db"
	"parkspot/internal/entities"
	apperrors "parkspot/internal/errors"
	"parkspot/internal/metrics"
)

// fakeStore is an in-memory BookingStore with the same atomicity contract as
// the Postgres repository: ReserveSlot re-checks the overlap and inserts
// under one lock.
type fakeStore struct {
	mu       sync.Mutex
	areas    map[string]db.ParkingArea
	slots    map[int][]db.ParkingSlot
	bookings map[int]db.Booking
	nextID   int

	// conflictsBeforeSuccess makes the next N ReserveSlot calls fail with
	// ErrSlotConflict, simulating an out-of-process race.
	conflictsBeforeSuccess int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		areas:    make(map[string]db.ParkingArea),
		slots:    make(map[int][]db.ParkingSlot),
		bookings: make(map[int]db.Booking),
	}
}

func (f *fakeStore) addArea(id int, name, city string, slotNumbers ...int) {
	f.areas[name] = db.ParkingArea{ID: id, Name: name, City: city, PricePerHour: 5}
	for _, n := range slotNumbers {
		f.slots[id] = append(f.slots[id], db.ParkingSlot{ID: id*100 + n, AreaID: id, SlotNumber: n})
	}
}

func (f *fakeStore) FindAreaByName(_ context.Context, name string) (*db.ParkingArea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	area, ok := f.areas[name]
	if !ok {
		return nil, fmt.Errorf("area %q: %w", name, apperrors.ErrAreaNotFound)
	}
	return &area, nil
}

func (f *fakeStore) ListSlotsForArea(_ context.Context, areaID int) ([]db.ParkingSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]db.ParkingSlot(nil), f.slots[areaID]...), nil
}

func (f *fakeStore) findOverlapLocked(slotID int, start, end time.Time) *db.Booking {
	for id := range f.bookings {
		b := f.bookings[id]
		if b.SlotID == slotID && Overlaps(b.StartTime, b.EndTime, start, end) {
			return &b
		}
	}
	return nil
}

func (f *fakeStore) FindOverlappingBooking(_ context.Context, slotID int, start, end time.Time) (*db.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findOverlapLocked(slotID, start, end), nil
}

func (f *fakeStore) ListBookingsEndingAfter(_ context.Context, slotID int, after time.Time) ([]db.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Booking
	for _, b := range f.bookings {
		if b.SlotID == slotID && b.EndTime.After(after) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ReserveSlot(_ context.Context, booking *db.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictsBeforeSuccess > 0 {
		f.conflictsBeforeSuccess--
		return apperrors.ErrSlotConflict
	}
	if f.findOverlapLocked(booking.SlotID, booking.StartTime, booking.EndTime) != nil {
		return apperrors.ErrSlotConflict
	}
	f.nextID++
	booking.ID = f.nextID
	f.bookings[booking.ID] = *booking
	return nil
}

func (f *fakeStore) FindBookingByID(_ context.Context, id int) (*db.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
	}
	return &b, nil
}

func (f *fakeStore) FindBookingDetail(_ context.Context, id int) (*entities.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
	}
	entry := &entities.HistoryEntry{
		BookingID:     b.ID,
		UserID:        b.UserID,
		Code:          b.Code,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		VehicleNumber: b.VehicleNumber,
		Amount:        b.Amount,
		PaymentStatus: b.PaymentStatus,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
	}
	for name, area := range f.areas {
		for _, slot := range f.slots[area.ID] {
			if slot.ID == b.SlotID {
				entry.Area = name
				entry.City = area.City
				entry.SlotNumber = slot.SlotNumber
			}
		}
	}
	return entry, nil
}

func (f *fakeStore) DeleteBooking(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[id]; !ok {
		return fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
	}
	delete(f.bookings, id)
	return nil
}

func (f *fakeStore) UpdateBookingStatus(_ context.Context, id int, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
	}
	if b.Status != from {
		return fmt.Errorf("booking %d no longer %s: %w", id, from, apperrors.ErrInvalidTransition)
	}
	b.Status = to
	f.bookings[id] = b
	return nil
}

func (f *fakeStore) MarkBookingPaid(_ context.Context, id int, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
	}
	if b.Status != db.StatusPending {
		return fmt.Errorf("booking %d is not pending: %w", id, apperrors.ErrInvalidTransition)
	}
	b.PaymentID.String = paymentID
	b.PaymentID.Valid = true
	b.PaymentStatus = db.PaymentPaid
	b.Status = db.StatusConfirmed
	f.bookings[id] = b
	return nil
}

func (f *fakeStore) MarkPaymentFailed(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d: %w", id, apperrors.ErrBookingNotFound)
	}
	b.PaymentStatus = db.PaymentFailed
	f.bookings[id] = b
	return nil
}

func newTestService(store BookingStore) *BookingService {
	return NewBookingService(store, nil, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
}

func hour(h int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(h) * time.Hour)
}

func bookReq(area string, start, end time.Time) *entities.BookingRequest {
	return &entities.BookingRequest{
		UserID:        1,
		Area:          area,
		StartTime:     start,
		EndTime:       end,
		VehicleNumber: "KA-01-AB-1234",
		Amount:        40,
	}
}

func TestCreateBookingValidation(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	cases := []struct {
		name string
		req  *entities.BookingRequest
	}{
		{"empty area", bookReq("", hour(10), hour(11))},
		{"inverted window", bookReq("A1", hour(11), hour(10))},
		{"zero-length window", bookReq("A1", hour(10), hour(10))},
		{"missing times", &entities.BookingRequest{UserID: 1, Area: "A1", VehicleNumber: "KA-01-AB-1234", Amount: 40}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(ctx, tc.req)
			var ve *apperrors.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	t.Run("bad plate", func(t *testing.T) {
		req := bookReq("A1", hour(10), hour(11))
		req.VehicleNumber = "??"
		_, err := svc.CreateBooking(ctx, req)
		var ve *apperrors.ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		req := bookReq("A1", hour(10), hour(11))
		req.Amount = 0
		_, err := svc.CreateBooking(ctx, req)
		var ve *apperrors.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestCreateBookingAreaNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.CreateBooking(context.Background(), bookReq("nowhere", hour(10), hour(11)))
	assert.ErrorIs(t, err, apperrors.ErrAreaNotFound)
}

func TestFirstFitPicksLowestNumberedFreeSlot(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1, 2, 3)
	svc := newTestService(store)
	ctx := context.Background()

	// Occupy slot 1 for the requested window.
	first, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeBooked, first.Status)
	assert.Equal(t, 1, first.Booking.SlotNumber)

	second, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeBooked, second.Status)
	assert.Equal(t, 2, second.Booking.SlotNumber, "slot 2 must win over slot 3")
}

func TestOverlappingWindowMovesToNextSlot(t *testing.T) {
	// Area A1 has slots {1,2}; slot 1 holds [10:00,11:00). A request for
	// [10:30,11:30) must land on slot 2.
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1, 2)
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	require.Equal(t, 1, first.Booking.SlotNumber)

	second, err := svc.CreateBooking(ctx, bookReq("A1", hour(10).Add(30*time.Minute), hour(11).Add(30*time.Minute)))
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeBooked, second.Status)
	assert.Equal(t, 2, second.Booking.SlotNumber)
	assert.Equal(t, "A1", second.Booking.Area)
	assert.Equal(t, "Pune", second.Booking.City)
}

func TestBackToBackBookingsAreLegal(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1)
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeBooked, first.Status)

	second, err := svc.CreateBooking(ctx, bookReq("A1", hour(11), hour(12)))
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeBooked, second.Status)
	assert.Equal(t, first.Booking.SlotNumber, second.Booking.SlotNumber)
}

func TestNoAvailabilityIsANormalOutcome(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1)
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(12)))
	require.NoError(t, err)

	result, err := svc.CreateBooking(ctx, bookReq("A1", hour(11), hour(13)))
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeUnavailable, result.Status)
	assert.Nil(t, result.Booking)
}

func TestCancellationFreesCapacity(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1)
	svc := newTestService(store)
	ctx := context.Background()

	booked, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeBooked, booked.Status)

	full, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeUnavailable, full.Status)

	require.NoError(t, svc.CancelBooking(ctx, booked.Booking.BookingID))

	rebooked, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeBooked, rebooked.Status)
	assert.Equal(t, booked.Booking.SlotNumber, rebooked.Booking.SlotNumber)
}

func TestCancelBookingNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())
	err := svc.CancelBooking(context.Background(), 9999)
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
}

func TestRaceForLastSlotHasOneWinner(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1)
	svc := newTestService(store)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan *entities.BookingResult, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			req := bookReq("A1", hour(10), hour(11))
			req.UserID = id + 1
			result, err := svc.CreateBooking(context.Background(), req)
			if err == nil {
				results <- result
			}
		}(i)
	}
	wg.Wait()
	close(results)

	booked, unavailable := 0, 0
	for result := range results {
		switch result.Status {
		case entities.OutcomeBooked:
			booked++
		case entities.OutcomeUnavailable:
			unavailable++
		}
	}
	assert.Equal(t, 1, booked, "exactly one request may win the last slot")
	assert.Equal(t, numGoroutines-1, unavailable)
	assert.Len(t, store.bookings, 1)
}

func TestReserveConflictTriggersSingleRescan(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1, 2)
	store.conflictsBeforeSuccess = 1
	svc := newTestService(store)

	result, err := svc.CreateBooking(context.Background(), bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeBooked, result.Status)
}

func TestReserveConflictSurfacesAfterRetry(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1)
	store.conflictsBeforeSuccess = 2
	svc := newTestService(store)

	_, err := svc.CreateBooking(context.Background(), bookReq("A1", hour(10), hour(11)))
	assert.ErrorIs(t, err, apperrors.ErrSlotConflict)
}

// Randomized insertion against a single slot: whatever subset of requests is
// accepted, no two stored bookings may ever overlap.
func TestNoDoubleBookingInvariant(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1, 2, 3)
	svc := newTestService(store)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		start := hour(rng.Intn(100))
		end := start.Add(time.Duration(1+rng.Intn(5)) * time.Hour)
		_, err := svc.CreateBooking(ctx, bookReq("A1", start, end))
		require.NoError(t, err)

		var all []db.Booking
		for _, b := range store.bookings {
			all = append(all, b)
		}
		for i := range all {
			for j := i + 1; j < len(all); j++ {
				if all[i].SlotID != all[j].SlotID {
					continue
				}
				assert.False(t,
					Overlaps(all[i].StartTime, all[i].EndTime, all[j].StartTime, all[j].EndTime),
					"bookings %d and %d overlap on slot %d", all[i].ID, all[j].ID, all[i].SlotID,
				)
			}
		}
	}
}

func TestCheckAvailability(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1, 2)
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)

	resp, err := svc.CheckAvailability(ctx, "A1", hour(10).Add(30*time.Minute), hour(11).Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, resp.IsOverallAvailable)
	assert.Equal(t, 1, resp.FreeSlots)
	require.Len(t, resp.SlotDetails, 2)
	assert.False(t, resp.SlotDetails[0].IsAvailable)
	assert.True(t, resp.SlotDetails[1].IsAvailable)

	// A window touching the existing booking's end is free on both slots.
	resp, err = svc.CheckAvailability(ctx, "A1", hour(11), hour(12))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.FreeSlots)
}

func TestConfirmPaymentMovesPendingToConfirmed(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1)
	svc := newTestService(store)
	ctx := context.Background()

	booked, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	id := booked.Booking.BookingID

	require.NoError(t, svc.ConfirmPayment(ctx, id, "pi_123"))

	b, err := store.FindBookingByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, b.Status)
	assert.Equal(t, db.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, "pi_123", b.PaymentID.String)

	// Confirming twice is an invalid transition.
	err = svc.ConfirmPayment(ctx, id, "pi_456")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestGateEventsDriveLifecycle(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1)
	svc := newTestService(store)
	ctx := context.Background()

	booked, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	id := booked.Booking.BookingID

	// Entry before payment confirmation is invalid.
	err = svc.RegisterEntry(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	require.NoError(t, svc.ConfirmPayment(ctx, id, "pi_123"))
	require.NoError(t, svc.RegisterEntry(ctx, id))
	require.NoError(t, svc.RegisterExit(ctx, id))

	b, err := store.FindBookingByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, b.Status)

	// Completed is terminal: nothing may move or cancel it, and the stored
	// status must stay untouched.
	assert.ErrorIs(t, svc.RegisterEntry(ctx, id), apperrors.ErrInvalidTransition)
	assert.ErrorIs(t, svc.RegisterExit(ctx, id), apperrors.ErrInvalidTransition)
	assert.ErrorIs(t, svc.CancelBooking(ctx, id), apperrors.ErrInvalidTransition)

	b, err = store.FindBookingByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, b.Status)
}

func TestCancelActiveBookingIsRejected(t *testing.T) {
	store := newFakeStore()
	store.addArea(1, "A1", "Pune", 1)
	svc := newTestService(store)
	ctx := context.Background()

	booked, err := svc.CreateBooking(ctx, bookReq("A1", hour(10), hour(11)))
	require.NoError(t, err)
	id := booked.Booking.BookingID

	require.NoError(t, svc.ConfirmPayment(ctx, id, "pi_123"))
	require.NoError(t, svc.RegisterEntry(ctx, id))

	assert.ErrorIs(t, svc.CancelBooking(ctx, id), apperrors.ErrInvalidTransition)

	b, err := store.FindBookingByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.StatusActive, b.Status)
}
