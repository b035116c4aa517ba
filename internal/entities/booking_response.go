package entities

import "time"

// Booking outcome statuses returned to the API layer. Unavailable is a
// normal business outcome, not a failure.
const (
	OutcomeBooked      = "booked"
	OutcomeUnavailable = "unavailable"
)

type BookingResponse struct {
	BookingID     int       `json:"booking_id"`
	Code          string    `json:"code"`
	SlotID        int       `json:"slot_id"`
	SlotNumber    int       `json:"slot_number"`
	Area          string    `json:"area"`
	City          string    `json:"city"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	VehicleNumber string    `json:"vehicle_number"`
	Amount        int       `json:"amount"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// BookingResult is what CreateBooking hands back: either a booked reservation
// or the no-availability outcome.
type BookingResult struct {
	Status  string           `json:"status"`
	Booking *BookingResponse `json:"booking,omitempty"`
}
