package worker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/reservapr/booking-api/internal/email"
	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
	"github.com/reservapr/booking-api/pkg/messaging"
)

// Notifier consumes booking events from the broker and emails the
// customer. It lives behind the outbox, so a slow SMTP server never
// stalls a booking transaction.
type Notifier struct {
	broker     messaging.Broker
	sender     email.Service
	businesses repository.BusinessRepository
	logger     zerolog.Logger
}

func NewNotifier(
	broker messaging.Broker,
	sender email.Service,
	businesses repository.BusinessRepository,
	logger zerolog.Logger,
) *Notifier {
	return &Notifier{
		broker:     broker,
		sender:     sender,
		businesses: businesses,
		logger:     logger.With().Str("component", "notifier").Logger(),
	}
}

func (n *Notifier) Start(ctx context.Context) error {
	booked, err := n.broker.Subscribe(ctx, model.EventAppointmentBooked)
	if err != nil {
		return err
	}
	canceled, err := n.broker.Subscribe(ctx, model.EventAppointmentCanceled)
	if err != nil {
		return err
	}

	n.logger.Info().Msg("starting notifier")

	for {
		select {
		case <-ctx.Done():
			n.logger.Info().Msg("shutting down notifier")
			return nil
		case raw, ok := <-booked:
			if !ok {
				return nil
			}
			n.handle(ctx, raw, false)
		case raw, ok := <-canceled:
			if !ok {
				return nil
			}
			n.handle(ctx, raw, true)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, raw []byte, canceled bool) {
	var msg struct {
		Type    string            `json:"type"`
		Payload model.Appointment `json:"payload"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		n.logger.Error().Err(err).Msg("failed to decode event")
		return
	}

	appt := &msg.Payload
	if appt.CustomerEmail == nil || *appt.CustomerEmail == "" {
		return
	}

	business, err := n.businesses.Get(ctx, appt.BusinessID)
	if err != nil {
		n.logger.Error().Err(err).
			Str("business_id", appt.BusinessID.String()).
			Msg("failed to load business for notification")
		return
	}

	if canceled {
		err = n.sender.SendCancellation(ctx, *appt.CustomerEmail, business, appt)
	} else {
		err = n.sender.SendBookingConfirmation(ctx, *appt.CustomerEmail, business, appt)
	}
	if err != nil {
		n.logger.Error().Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("failed to send notification")
		return
	}

	n.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Bool("canceled", canceled).
		Msg("notification sent")
}
