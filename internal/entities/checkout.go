package entities

type CheckoutSessionResponse struct {
	BookingCode string `json:"booking_code"`
	SessionID   string `json:"session_id"`
	URL         string `json:"url"`
}
