package model

// Business is the tenant root. Every other entity is scoped by BusinessID.
// Timezone is an IANA name; every wall-clock value stored for the business
// (rules, exceptions, series time-of-day) is interpreted in it.
type Business struct {
	Base
	Name               string    `db:"name" json:"name"`
	Timezone           string    `db:"timezone" json:"timezone"`
	ContactEmail       string    `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone       string    `db:"contact_phone" json:"contact_phone,omitempty"`
	BookingNoticeMin   int       `db:"booking_notice_min" json:"booking_notice_min"`
	BookingHorizonDays int       `db:"booking_horizon_days" json:"booking_horizon_days"`
	IsActive           bool      `db:"is_active" json:"is_active"`
}

type CreateBusinessRequest struct {
	Name               string `json:"name" validate:"required,max=200"`
	Timezone           string `json:"timezone" validate:"required,timezone"`
	ContactEmail       string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone       string `json:"contact_phone" validate:"max=32"`
	BookingNoticeMin   int    `json:"booking_notice_min" validate:"min=0"`
	BookingHorizonDays int    `json:"booking_horizon_days" validate:"min=0,max=365"`
}

type UpdateBusinessRequest struct {
	Name               *string `json:"name" validate:"omitempty,max=200"`
	Timezone           *string `json:"timezone" validate:"omitempty,timezone"`
	ContactEmail       *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone       *string `json:"contact_phone" validate:"omitempty,max=32"`
	BookingNoticeMin   *int    `json:"booking_notice_min" validate:"omitempty,min=0"`
	BookingHorizonDays *int    `json:"booking_horizon_days" validate:"omitempty,min=0,max=365"`
	IsActive           *bool   `json:"is_active"`
}
