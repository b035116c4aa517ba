package api

import "time"

type RegisterRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type AvailabilityRequest struct {
	Area      string    `json:"area"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type BookRequest struct {
	Area          string    `json:"area"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	VehicleNumber string    `json:"vehicle_number"`
	Amount        int       `json:"amount"`
	PaymentID     string    `json:"payment_id,omitempty"`
}

type CheckoutRequest struct {
	BookingID int `json:"booking_id"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
