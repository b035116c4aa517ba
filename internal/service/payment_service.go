package service

import (
	"context"

	"github.com/rs/zerolog"

	"parkspot/internal/db"
	"parkspot/internal/entities"
	apperrors "parkspot/internal/errors"
	"parkspot/internal/repository"
)

const checkoutCurrency = "eur"

// PaymentStore is the slice of booking persistence the payment flow needs.
type PaymentStore interface {
	FindBookingByID(ctx context.Context, id int) (*db.Booking, error)
	SetStripeSession(ctx context.Context, id int, sessionID string) error
	FindBookingByStripeSession(ctx context.Context, sessionID string) (*db.Booking, error)
}

type PaymentService struct {
	stripe *StripeService
	store  PaymentStore
	users  repository.UserRepository
	log    zerolog.Logger
}

func NewPaymentService(stripe *StripeService, store PaymentStore, users repository.UserRepository, log zerolog.Logger) *PaymentService {
	return &PaymentService{stripe: stripe, store: store, users: users, log: log}
}

// StartCheckout creates a Stripe checkout session for a pending booking and
// remembers the session id so the webhook can find the booking again.
func (s *PaymentService) StartCheckout(ctx context.Context, bookingID, userID int) (*entities.CheckoutSessionResponse, error) {
	booking, err := s.store.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, apperrors.ErrBookingNotFound
	}
	if booking.PaymentStatus == db.PaymentPaid {
		return nil, apperrors.NewValidationError("booking", "already paid")
	}
	if booking.Status != db.StatusPending {
		return nil, apperrors.NewValidationError("booking", "only pending bookings can be paid")
	}

	user, err := s.users.GetByID(ctx, booking.UserID)
	if err != nil {
		return nil, err
	}

	// Amount is stored in whole currency units; Stripe wants minor units.
	url, sessionID, err := s.stripe.CreateCheckoutSession(int64(booking.Amount)*100, checkoutCurrency, booking.Code, user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetStripeSession(ctx, booking.ID, sessionID); err != nil {
		return nil, err
	}
	s.log.Info().Int("booking_id", booking.ID).Str("session_id", sessionID).Msg("checkout session created")

	return &entities.CheckoutSessionResponse{
		BookingCode: booking.Code,
		SessionID:   sessionID,
		URL:         url,
	}, nil
}

// BookingForSession resolves the booking a webhook event refers to.
func (s *PaymentService) BookingForSession(ctx context.Context, sessionID string) (*db.Booking, error) {
	return s.store.FindBookingByStripeSession(ctx, sessionID)
}

// BookingForPaymentIntent resolves a booking when the event only carries a
// payment intent, as refund events do.
func (s *PaymentService) BookingForPaymentIntent(ctx context.Context, paymentIntentID string) (*db.Booking, error) {
	sessionID, err := s.stripe.SessionIDByPaymentIntentID(paymentIntentID)
	if err != nil {
		return nil, err
	}
	return s.store.FindBookingByStripeSession(ctx, sessionID)
}
