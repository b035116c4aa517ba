package api

import (
	"context"
	"net/http"

	"parkspot/internal/auth"
	"parkspot/internal/db"
	"parkspot/internal/entities"
	"parkspot/internal/service"
)

type HistoryHandler struct {
	History *service.HistoryService
	Areas   AreaLister
}

// AreaLister is the slice of area persistence the public listing needs.
type AreaLister interface {
	ListAreas(ctx context.Context) ([]db.ParkingArea, error)
}

func NewHistoryHandler(history *service.HistoryService, areas AreaLister) *HistoryHandler {
	return &HistoryHandler{History: history, Areas: areas}
}

// LatestBooking backs the ticket view: the caller's most recent booking.
func (h *HistoryHandler) LatestBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	booking, err := h.History.LatestBooking(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *HistoryHandler) BookingHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	history, err := h.History.History(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	if history == nil {
		history = []entities.HistoryEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": history})
}

func (h *HistoryHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.Areas.ListAreas(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": areas})
}
