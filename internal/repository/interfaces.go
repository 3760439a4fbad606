package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/reservapr/booking-api/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrSlotUnavailable is returned by the guarded booking insert when the
// requested interval would exceed the service's max_per_slot concurrency.
var ErrSlotUnavailable = errors.New("slot unavailable")

// All repository interfaces in one file
type (
	BusinessRepository interface {
		Create(ctx context.Context, business *model.Business) error
		Get(ctx context.Context, id uuid.UUID) (*model.Business, error)
		Update(ctx context.Context, business *model.Business) error
	}

	StaffRepository interface {
		Create(ctx context.Context, staff *model.Staff) error
		Get(ctx context.Context, id uuid.UUID) (*model.Staff, error)
		Update(ctx context.Context, staff *model.Staff) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Staff, error)
	}

	ServiceRepository interface {
		Create(ctx context.Context, svc *model.Service) error
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
		Update(ctx context.Context, svc *model.Service) error
		ListByBusiness(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]*model.Service, error)
	}

	AvailabilityRepository interface {
		CreateRule(ctx context.Context, rule *model.AvailabilityRule) error
		GetRule(ctx context.Context, id uuid.UUID) (*model.AvailabilityRule, error)
		DeleteRule(ctx context.Context, id uuid.UUID) error
		ListRules(ctx context.Context, businessID uuid.UUID) ([]*model.AvailabilityRule, error)

		UpsertException(ctx context.Context, exc *model.AvailabilityException) error
		GetException(ctx context.Context, id uuid.UUID) (*model.AvailabilityException, error)
		DeleteException(ctx context.Context, id uuid.UUID) error
		ListExceptions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error)
	}

	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListOccupying returns appointments in occupying statuses whose
		// padded intervals intersect [from, to). A non-nil staffID narrows
		// the result to that staff member plus unassigned appointments.
		ListOccupying(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		// BookGuarded inserts appt only if, under a per-(business, staff,
		// day) advisory lock, fewer than maxPerSlot occupying appointments
		// overlap its padded interval. The outbox event is written in the
		// same transaction. Returns ErrSlotUnavailable on a full slot.
		BookGuarded(ctx context.Context, appt *model.Appointment, maxPerSlot int, event *model.OutboxEvent) error
		// UpdateWithEvent persists appt and the event atomically; event may
		// be nil for silent updates.
		UpdateWithEvent(ctx context.Context, appt *model.Appointment, event *model.OutboxEvent) error
		// CancelFutureBySeries cancels not-yet-started pending/confirmed
		// appointments of a series, writing a cancellation outbox event per
		// row in the same transaction, and returns the canceled rows.
		CancelFutureBySeries(ctx context.Context, seriesID uuid.UUID, from time.Time, reason string) ([]*model.Appointment, error)
	}

	RecurringRepository interface {
		Create(ctx context.Context, series *model.RecurringSeries) error
		Get(ctx context.Context, id uuid.UUID) (*model.RecurringSeries, error)
		Update(ctx context.Context, series *model.RecurringSeries) error
		// AdvanceCursor records that the expander has visited every occurrence
		// date up to and including date. Never moves the cursor backwards.
		AdvanceCursor(ctx context.Context, id uuid.UUID, date time.Time) error
		ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.RecurringSeries, error)
		ListActive(ctx context.Context) ([]*model.RecurringSeries, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
	}
)
