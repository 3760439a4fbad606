package model

import (
	"github.com/google/uuid"
)

// Service is a bookable offering. Services are soft-disabled via IsActive
// rather than deleted so past appointments keep their reference.
type Service struct {
	Base
	BusinessID      uuid.UUID `db:"business_id" json:"business_id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description,omitempty"`
	DurationMin     int       `db:"duration_min" json:"duration_min"`
	PriceCents      int64     `db:"price_cents" json:"price_cents"`
	DepositCents    int64     `db:"deposit_cents" json:"deposit_cents"`
	BufferBeforeMin int       `db:"buffer_before_min" json:"buffer_before_min"`
	BufferAfterMin  int       `db:"buffer_after_min" json:"buffer_after_min"`
	MaxPerSlot      int       `db:"max_per_slot" json:"max_per_slot"`
	IsActive        bool      `db:"is_active" json:"is_active"`
}

// RequiresDeposit reports whether a booking for this service starts in
// pending state until a deposit is settled by the caller's payment flow.
func (s *Service) RequiresDeposit() bool {
	return s.DepositCents > 0
}

type CreateServiceRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=2000"`
	DurationMin     int    `json:"duration_min" validate:"required,gt=0,max=1440"`
	PriceCents      int64  `json:"price_cents" validate:"min=0"`
	DepositCents    int64  `json:"deposit_cents" validate:"min=0"`
	BufferBeforeMin int    `json:"buffer_before_min" validate:"min=0,max=240"`
	BufferAfterMin  int    `json:"buffer_after_min" validate:"min=0,max=240"`
	MaxPerSlot      int    `json:"max_per_slot" validate:"omitempty,min=1,max=100"`
}

type UpdateServiceRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=200"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	DurationMin     *int    `json:"duration_min" validate:"omitempty,gt=0,max=1440"`
	PriceCents      *int64  `json:"price_cents" validate:"omitempty,min=0"`
	DepositCents    *int64  `json:"deposit_cents" validate:"omitempty,min=0"`
	BufferBeforeMin *int    `json:"buffer_before_min" validate:"omitempty,min=0,max=240"`
	BufferAfterMin  *int    `json:"buffer_after_min" validate:"omitempty,min=0,max=240"`
	MaxPerSlot      *int    `json:"max_per_slot" validate:"omitempty,min=1,max=100"`
	IsActive        *bool   `json:"is_active"`
}
