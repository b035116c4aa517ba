package db

import (
	"database/sql"
	"time"
)

// Lifecycle statuses for a booking. Completed and cancelled are terminal;
// cancelled bookings are hard-deleted, so the value never persists in a row.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment statuses, tracked independently of the lifecycle status.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

type ParkingArea struct {
	ID           int
	Name         string
	City         string
	Address      string
	Latitude     float64
	Longitude    float64
	PricePerHour int
}

type ParkingSlot struct {
	ID         int
	AreaID     int
	SlotNumber int
}

type Booking struct {
	ID              int
	Code            string
	UserID          int
	SlotID          int
	StartTime       time.Time
	EndTime         time.Time
	VehicleNumber   string
	Amount          int
	PaymentID       sql.NullString
	PaymentStatus   string
	Status          string
	StripeSessionID sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type User struct {
	ID           int
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}
