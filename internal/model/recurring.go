package model

import (
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// RecurringSeries is a template that generates concrete appointments at a
// fixed cadence. Deactivating a series stops future generation but leaves
// already materialized appointments alone.
type RecurringSeries struct {
	Base
	BusinessID    uuid.UUID  `db:"business_id" json:"business_id"`
	ServiceID     uuid.UUID  `db:"service_id" json:"service_id"`
	StaffID       *uuid.UUID `db:"staff_id" json:"staff_id,omitempty"`
	CustomerName  string     `db:"customer_name" json:"customer_name"`
	CustomerPhone string     `db:"customer_phone" json:"customer_phone"`
	CustomerEmail *string    `db:"customer_email" json:"customer_email,omitempty"`
	Frequency     Frequency  `db:"frequency" json:"frequency"`
	StartDate     time.Time  `db:"start_date" json:"start_date"`
	EndDate       *time.Time `db:"end_date" json:"end_date,omitempty"`
	TimeOfDay     string     `db:"time_of_day" json:"time_of_day"`
	Notes         string     `db:"notes" json:"notes,omitempty"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	// LastExpandedDate is the expander's cursor: the latest occurrence date
	// already visited, whether it was booked or skipped. Nil until the first
	// sweep touches the series.
	LastExpandedDate *time.Time `db:"last_expanded_date" json:"last_expanded_date,omitempty"`
}

type CreateSeriesRequest struct {
	ServiceID     uuid.UUID  `json:"service_id" validate:"required"`
	StaffID       *uuid.UUID `json:"staff_id"`
	CustomerName  string     `json:"customer_name" validate:"required,max=200"`
	CustomerPhone string     `json:"customer_phone" validate:"required,max=32"`
	CustomerEmail *string    `json:"customer_email" validate:"omitempty,email"`
	Frequency     string     `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
	StartDate     string     `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       *string    `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	TimeOfDay     string     `json:"time_of_day" validate:"required,hhmm"`
	Notes         string     `json:"notes" validate:"max=1000"`
}

type UpdateSeriesRequest struct {
	StaffID       *uuid.UUID `json:"staff_id"`
	CustomerName  *string    `json:"customer_name" validate:"omitempty,max=200"`
	CustomerPhone *string    `json:"customer_phone" validate:"omitempty,max=32"`
	CustomerEmail *string    `json:"customer_email" validate:"omitempty,email"`
	EndDate       *string    `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	TimeOfDay     *string    `json:"time_of_day" validate:"omitempty,hhmm"`
	Notes         *string    `json:"notes" validate:"omitempty,max=1000"`
	IsActive      *bool      `json:"is_active"`
}
