package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityRule is a weekly recurring open window. StaffID nil means the
// rule applies business-wide; a staff-specific rule set overrides the
// business-wide set for that staff member's lookups.
type AvailabilityRule struct {
	Base
	BusinessID uuid.UUID  `db:"business_id" json:"business_id"`
	StaffID    *uuid.UUID `db:"staff_id" json:"staff_id,omitempty"`
	Weekday    int        `db:"weekday" json:"weekday"` // 0=Sunday .. 6=Saturday
	StartTime  string     `db:"start_time" json:"start_time"`
	EndTime    string     `db:"end_time" json:"end_time"`
}

type ExceptionReason string

const (
	ExceptionReasonVacation    ExceptionReason = "vacation"
	ExceptionReasonSick        ExceptionReason = "sick"
	ExceptionReasonHoliday     ExceptionReason = "holiday"
	ExceptionReasonMaintenance ExceptionReason = "maintenance"
	ExceptionReasonOther       ExceptionReason = "other"
)

// AvailabilityException overrides the weekly rules for one calendar date.
// A closed exception carries no times; a custom-hours exception carries both.
type AvailabilityException struct {
	Base
	BusinessID uuid.UUID       `db:"business_id" json:"business_id"`
	StaffID    *uuid.UUID      `db:"staff_id" json:"staff_id,omitempty"`
	Date       time.Time       `db:"date" json:"date"`
	IsClosed   bool            `db:"is_closed" json:"is_closed"`
	StartTime  *string         `db:"start_time" json:"start_time,omitempty"`
	EndTime    *string         `db:"end_time" json:"end_time,omitempty"`
	Reason     ExceptionReason `db:"reason" json:"reason"`
}

type CreateRuleRequest struct {
	StaffID   *uuid.UUID `json:"staff_id"`
	Weekday   *int       `json:"weekday" validate:"required,min=0,max=6"`
	StartTime string     `json:"start_time" validate:"required,hhmm"`
	EndTime   string     `json:"end_time" validate:"required,hhmm"`
}

// UpsertExceptionRequest creates or replaces the exception for
// (business, staff, date).
type UpsertExceptionRequest struct {
	StaffID   *uuid.UUID `json:"staff_id"`
	Date      string     `json:"date" validate:"required,datetime=2006-01-02"`
	IsClosed  bool       `json:"is_closed"`
	StartTime *string    `json:"start_time" validate:"omitempty,hhmm"`
	EndTime   *string    `json:"end_time" validate:"omitempty,hhmm"`
	Reason    string     `json:"reason" validate:"omitempty,oneof=vacation sick holiday maintenance other"`
}

// Window is one open interval of a day, business-local wall clock.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySource says which layer produced a day's availability.
type DaySource string

const (
	DaySourceRule      DaySource = "rule"
	DaySourceException DaySource = "exception"
	DaySourceNone      DaySource = "none"
)

// DayAvailability is the resolved availability for one calendar date.
type DayAvailability struct {
	Date    string          `json:"date"`
	Open    bool            `json:"open"`
	Windows []Window        `json:"windows,omitempty"`
	Reason  ExceptionReason `json:"reason,omitempty"`
	Source  DaySource       `json:"source"`
}
