package service

import "time"

// Overlaps reports whether two half-open intervals [existingStart, existingEnd)
// and [candidateStart, candidateEnd) share any instant. A booking ending
// exactly when another starts is not a conflict, so back-to-back bookings on
// the same slot are legal. Callers must pass validated, strictly increasing
// ranges.
func Overlaps(existingStart, existingEnd, candidateStart, candidateEnd time.Time) bool {
	return existingStart.Before(candidateEnd) && existingEnd.After(candidateStart)
}
