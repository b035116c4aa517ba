package entities

import "time"

type BookingRequest struct {
	UserID        int       `json:"user_id"`
	Area          string    `json:"area"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	VehicleNumber string    `json:"vehicle_number"`
	Amount        int       `json:"amount"`
	PaymentID     string    `json:"payment_id,omitempty"`
}
