package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"parkspot/internal/auth"
	"parkspot/internal/entities"
	apperrors "parkspot/internal/errors"
	"parkspot/internal/service"
)

type BookingHandler struct {
	Service *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Service.CheckAvailability(r.Context(), req.Area, req.StartTime, req.EndTime)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.Service.CreateBooking(r.Context(), &entities.BookingRequest{
		UserID:        userID,
		Area:          req.Area,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		VehicleNumber: req.VehicleNumber,
		Amount:        req.Amount,
		PaymentID:     req.PaymentID,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	// A full area is a normal outcome the client shows to the user, not an
	// error response.
	if result.Status == entities.OutcomeUnavailable {
		respondJSON(w, http.StatusOK, StatusResponse{
			Status:  result.Status,
			Message: "No slots available at the requested time",
		})
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	booking, err := h.Service.GetBooking(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := h.Service.CancelBooking(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrBookingNotFound) {
			respondJSON(w, http.StatusNotFound, StatusResponse{Status: "not_found"})
			return
		}
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{Status: "cancelled", Message: "Canceled Successfully"})
}

// RegisterEntry handles the gate-entry scan signal.
func (h *BookingHandler) RegisterEntry(w http.ResponseWriter, r *http.Request) {
	h.applyGateEvent(w, r, h.Service.RegisterEntry)
}

// RegisterExit handles the gate-exit scan signal.
func (h *BookingHandler) RegisterExit(w http.ResponseWriter, r *http.Request) {
	h.applyGateEvent(w, r, h.Service.RegisterExit)
}

func (h *BookingHandler) applyGateEvent(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int) error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := apply(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
