// Package email sends customer-facing booking notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/reservapr/booking-api/internal/model"
)

type Service interface {
	SendBookingConfirmation(ctx context.Context, to string, business *model.Business, appt *model.Appointment) error
	SendCancellation(ctx context.Context, to string, business *model.Business, appt *model.Appointment) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(host string, port int, username, password, from string) Service {
	return &smtpService{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *smtpService) SendBookingConfirmation(ctx context.Context, to string, business *model.Business, appt *model.Appointment) error {
	subject := fmt.Sprintf("Your appointment at %s is booked", business.Name)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment on %s is booked.\n\nSee you soon,\n%s\n",
		appt.CustomerName,
		s.formatLocal(business, appt.StartsAt),
		business.Name,
	)
	return s.send(to, subject, body)
}

func (s *smtpService) SendCancellation(ctx context.Context, to string, business *model.Business, appt *model.Appointment) error {
	subject := fmt.Sprintf("Your appointment at %s was canceled", business.Name)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment on %s has been canceled.\n\n%s\n",
		appt.CustomerName,
		s.formatLocal(business, appt.StartsAt),
		business.Name,
	)
	return s.send(to, subject, body)
}

// formatLocal renders the start time on the business's wall clock; the
// customer booked against that clock, not UTC.
func (s *smtpService) formatLocal(business *model.Business, t time.Time) string {
	loc, err := time.LoadLocation(business.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Monday, January 2 2006 at 15:04")
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
