package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"parkspot/internal/service"
)

type StripeWebhookHandler struct {
	StripeSecret   string
	bookingService *service.BookingService
	paymentService *service.PaymentService
	log            zerolog.Logger
}

func NewStripeWebhookHandler(stripeSecret string, bookingService *service.BookingService, paymentService *service.PaymentService, log zerolog.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		StripeSecret:   stripeSecret,
		bookingService: bookingService,
		paymentService: paymentService,
		log:            log,
	}
}

// HandleWebhook verifies the Stripe signature and feeds verified payment
// references into the booking core. The core trusts this input once given.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Error().Err(err).Msg("error reading webhook body")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.StripeSecret)
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil || sess.ID == "" {
			h.log.Warn().Err(err).Msg("malformed checkout.session.completed event")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		booking, err := h.paymentService.BookingForSession(r.Context(), sess.ID)
		if err != nil {
			h.log.Error().Err(err).Str("session_id", sess.ID).Msg("no booking for completed session")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		paymentRef := sess.ID
		if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
			paymentRef = sess.PaymentIntent.ID
		}
		if err := h.bookingService.ConfirmPayment(r.Context(), booking.ID, paymentRef); err != nil {
			h.log.Error().Err(err).Int("booking_id", booking.ID).Msg("confirming payment failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			h.log.Warn().Err(err).Msg("malformed charge.refunded event")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
			booking, err := h.paymentService.BookingForPaymentIntent(r.Context(), charge.PaymentIntent.ID)
			if err != nil {
				h.log.Warn().Err(err).Str("payment_intent", charge.PaymentIntent.ID).Msg("no booking for refunded charge")
				w.WriteHeader(http.StatusOK)
				return
			}
			if err := h.bookingService.FailPayment(r.Context(), booking.ID); err != nil {
				h.log.Error().Err(err).Int("booking_id", booking.ID).Msg("marking payment failed")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}

	default:
		h.log.Debug().Str("type", string(event.Type)).Msg("unhandled stripe event type")
	}

	w.WriteHeader(http.StatusOK)
}
