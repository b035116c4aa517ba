package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parkspot/internal/entities"
	"parkspot/internal/repository"
)

// SenderService turns booking status changes into email and SMS
// notifications. It implements Notifier.
type SenderService struct {
	users repository.UserRepository
	log   zerolog.Logger
}

func NewSenderService(users repository.UserRepository, log zerolog.Logger) *SenderService {
	return &SenderService{users: users, log: log}
}

func (s *SenderService) BookingStatusChanged(booking entities.HistoryEntry, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := s.users.GetByID(ctx, booking.UserID)
	if err != nil {
		s.log.Warn().Err(err).Int("user_id", booking.UserID).Msg("cannot notify: user lookup failed")
		return
	}

	data := entities.BookingEmailData{
		Code:               booking.Code,
		Area:               booking.Area,
		City:               booking.City,
		SlotNumber:         booking.SlotNumber,
		VehicleNumber:      booking.VehicleNumber,
		StartTimeFormatted: booking.StartTime.UTC().Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   booking.EndTime.UTC().Format("02 Jan 2006 15:04 MST"),
		Status:             status,
	}

	subject := fmt.Sprintf("Your ParkSpot booking is %s - Code: %s", status, data.Code)
	plainBody := fmt.Sprintf(
		"Hello,\n\nYour parking reservation is %s.\n\n"+
			"Booking Details:\n"+
			"Booking Code: %s\n"+
			"Area: %s (%s), Slot %d\n"+
			"Vehicle: %s\n"+
			"From: %s\n"+
			"To: %s\n\n"+
			"Thank you for choosing ParkSpot.",
		status, data.Code, data.Area, data.City, data.SlotNumber,
		data.VehicleNumber, data.StartTimeFormatted, data.EndTimeFormatted,
	)
	htmlBody := fmt.Sprintf(
		"<p>Hello,</p><p>Your parking reservation is <b>%s</b>.</p>"+
			"<ul><li>Booking Code: %s</li><li>Area: %s (%s), Slot %d</li>"+
			"<li>Vehicle: %s</li><li>From: %s</li><li>To: %s</li></ul>"+
			"<p>Thank you for choosing ParkSpot.</p>",
		status, data.Code, data.Area, data.City, data.SlotNumber,
		data.VehicleNumber, data.StartTimeFormatted, data.EndTimeFormatted,
	)

	go func(toEmail, subject, plainBody, htmlBody, code string) {
		if err := SendEmailWithSendGrid(toEmail, "", subject, plainBody, htmlBody); err != nil {
			s.log.Warn().Err(err).Str("booking_code", code).Msg("booking email failed")
		}
	}(user.Email, subject, plainBody, htmlBody, data.Code)

	if user.Phone == "" {
		return
	}
	sms := fmt.Sprintf("ParkSpot: booking %s is %s. Slot %d at %s, check-in %s. Details in your email.",
		data.Code, status, data.SlotNumber, data.Area,
		booking.StartTime.UTC().Format("02/01 15:04"),
	)
	if err := SendSMS(user.Phone, sms); err != nil {
		s.log.Warn().Err(err).Str("booking_code", data.Code).Msg("booking sms failed")
	}
}
