package service

import (
	"fmt"

	"parkspot/internal/db"
	apperrors "parkspot/internal/errors"
)

// Allowed lifecycle transitions. Completed and cancelled are terminal and
// have no outgoing edges.
var transitions = map[string][]string{
	db.StatusPending:   {db.StatusConfirmed, db.StatusCancelled},
	db.StatusConfirmed: {db.StatusActive, db.StatusCancelled},
	db.StatusActive:    {db.StatusCompleted},
}

// CanTransition reports whether a booking may move from one lifecycle status
// to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a lifecycle change, returning ErrInvalidTransition
// without touching any state when the change is not permitted.
func Transition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, from, to)
	}
	return nil
}
