package entities

import "time"

type SlotAvailability struct {
	SlotID      int  `json:"slot_id"`
	SlotNumber  int  `json:"slot_number"`
	IsAvailable bool `json:"is_available"`
}

type AvailabilityResponse struct {
	Area               string             `json:"area"`
	RequestedStartTime time.Time          `json:"requested_start_time"`
	RequestedEndTime   time.Time          `json:"requested_end_time"`
	IsOverallAvailable bool               `json:"is_overall_available"`
	FreeSlots          int                `json:"free_slots"`
	SlotDetails        []SlotAvailability `json:"slot_details,omitempty"`
}
