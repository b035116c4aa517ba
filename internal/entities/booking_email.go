package entities

type BookingEmailData struct {
	Code               string
	Area               string
	City               string
	SlotNumber         int
	VehicleNumber      string
	StartTimeFormatted string
	EndTimeFormatted   string
	Status             string
}
