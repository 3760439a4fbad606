package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Occupies reports whether an appointment in this status blocks its padded
// interval from other bookings. Canceled and no-show free the slot.
func (s AppointmentStatus) Occupies() bool {
	return s != AppointmentStatusCanceled && s != AppointmentStatusNoShow
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Appointment is a concrete booking. StartsAt/EndsAt are UTC instants; the
// buffer columns are copied from the service at booking time so occupancy
// checks never depend on later service edits.
type Appointment struct {
	Base
	BusinessID      uuid.UUID         `db:"business_id" json:"business_id"`
	StaffID         *uuid.UUID        `db:"staff_id" json:"staff_id,omitempty"`
	ServiceID       uuid.UUID         `db:"service_id" json:"service_id"`
	SeriesID        *uuid.UUID        `db:"series_id" json:"series_id,omitempty"`
	CustomerName    string            `db:"customer_name" json:"customer_name"`
	CustomerPhone   string            `db:"customer_phone" json:"customer_phone"`
	CustomerEmail   *string           `db:"customer_email" json:"customer_email,omitempty"`
	StartsAt        time.Time         `db:"starts_at" json:"starts_at"`
	EndsAt          time.Time         `db:"ends_at" json:"ends_at"`
	BufferBeforeMin int               `db:"buffer_before_min" json:"buffer_before_min"`
	BufferAfterMin  int               `db:"buffer_after_min" json:"buffer_after_min"`
	Status          AppointmentStatus `db:"status" json:"status"`
	DepositCents    int64             `db:"deposit_cents" json:"deposit_cents"`
	PaymentStatus   PaymentStatus     `db:"payment_status" json:"payment_status"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	CancelReason    *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// PaddedStart is the start of the occupied interval including the lead buffer.
func (a *Appointment) PaddedStart() time.Time {
	return a.StartsAt.Add(-time.Duration(a.BufferBeforeMin) * time.Minute)
}

// PaddedEnd is the end of the occupied interval including the trailing buffer.
func (a *Appointment) PaddedEnd() time.Time {
	return a.EndsAt.Add(time.Duration(a.BufferAfterMin) * time.Minute)
}

type BookingRequest struct {
	BusinessID    uuid.UUID  `json:"business_id" validate:"required"`
	ServiceID     uuid.UUID  `json:"service_id" validate:"required"`
	StaffID       *uuid.UUID `json:"staff_id"`
	StartsAt      time.Time  `json:"starts_at" validate:"required"`
	CustomerName  string     `json:"customer_name" validate:"required,max=200"`
	CustomerPhone string     `json:"customer_phone" validate:"required,max=32"`
	CustomerEmail *string    `json:"customer_email" validate:"omitempty,email"`
	Notes         string     `json:"notes" validate:"max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type AppointmentFilters struct {
	BusinessID uuid.UUID
	StaffID    *uuid.UUID
	ServiceID  *uuid.UUID
	Status     AppointmentStatus
	From       time.Time
	To         time.Time
}

// Slot is a candidate bookable start time produced by the slot generator.
type Slot struct {
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Remaining int       `json:"remaining"`
}
