package entities

import "time"

// HistoryEntry is a booking denormalized with its slot and area for
// history/ticket views.
type HistoryEntry struct {
	BookingID     int       `json:"booking_id"`
	UserID        int       `json:"user_id"`
	Code          string    `json:"code"`
	Area          string    `json:"area"`
	City          string    `json:"city"`
	SlotNumber    int       `json:"slot_number"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	VehicleNumber string    `json:"vehicle_number"`
	Amount        int       `json:"amount"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
