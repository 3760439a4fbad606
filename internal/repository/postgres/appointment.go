package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
)

const appointmentColumns = `
	id, business_id, staff_id, service_id, series_id,
	customer_name, customer_phone, customer_email,
	starts_at, ends_at, buffer_before_min, buffer_after_min,
	status, deposit_cents, payment_status, notes, cancel_reason,
	created_at, updated_at
`

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE business_id = $1`
	args := []interface{}{filters.BusinessID}
	argCount := 2

	if filters.StaffID != nil {
		query += fmt.Sprintf(" AND staff_id = $%d", argCount)
		args = append(args, *filters.StaffID)
		argCount++
	}
	if filters.ServiceID != nil {
		query += fmt.Sprintf(" AND service_id = $%d", argCount)
		args = append(args, *filters.ServiceID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND starts_at >= $%d", argCount)
		args = append(args, filters.From)
		argCount++
	}
	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND starts_at < $%d", argCount)
		args = append(args, filters.To)
		argCount++
	}

	query += " ORDER BY starts_at ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListOccupying(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1
		AND status NOT IN ('canceled', 'no_show')
		AND starts_at - make_interval(mins => buffer_before_min) < $3
		AND ends_at + make_interval(mins => buffer_after_min) > $2
	`
	args := []interface{}{businessID, from, to}
	if staffID != nil {
		query += " AND (staff_id = $4 OR staff_id IS NULL)"
		args = append(args, *staffID)
	}
	query += " ORDER BY starts_at ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list occupying appointments: %w", err)
	}
	return appointments, nil
}

// bookingLockKey derives the advisory lock key serializing bookings for one
// (business, staff, calendar day). Unassigned bookings share the staff-less
// key so they contend with every staff-specific booking for the day through
// the overlap re-count, not through the lock alone.
func bookingLockKey(businessID uuid.UUID, staffID *uuid.UUID, day time.Time) int64 {
	h := fnv.New64a()
	h.Write(businessID[:])
	if staffID != nil {
		h.Write(staffID[:])
	}
	h.Write([]byte(day.UTC().Format("2006-01-02")))
	return int64(h.Sum64())
}

func (r *appointmentRepository) BookGuarded(ctx context.Context, appt *model.Appointment, maxPerSlot int, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin booking transaction: %w", err)
	}
	defer tx.Rollback()

	key := bookingLockKey(appt.BusinessID, appt.StaffID, appt.StartsAt)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
		return fmt.Errorf("failed to take booking lock: %w", err)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM appointments
		WHERE business_id = $1
		AND status NOT IN ('canceled', 'no_show')
		AND starts_at - make_interval(mins => buffer_before_min) < $3
		AND ends_at + make_interval(mins => buffer_after_min) > $2
	`
	args := []interface{}{appt.BusinessID, appt.PaddedStart(), appt.PaddedEnd()}
	if appt.StaffID != nil {
		countQuery += " AND (staff_id = $4 OR staff_id IS NULL)"
		args = append(args, *appt.StaffID)
	}

	var overlaps int
	if err := tx.GetContext(ctx, &overlaps, countQuery, args...); err != nil {
		return fmt.Errorf("failed to count overlapping appointments: %w", err)
	}
	if overlaps >= maxPerSlot {
		return repository.ErrSlotUnavailable
	}

	insert := `
		INSERT INTO appointments (
			id, business_id, staff_id, service_id, series_id,
			customer_name, customer_phone, customer_email,
			starts_at, ends_at, buffer_before_min, buffer_after_min,
			status, deposit_cents, payment_status, notes, cancel_reason,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19
		)
	`
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = time.Now()
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}

	_, err = tx.ExecContext(ctx, insert,
		appt.ID,
		appt.BusinessID,
		appt.StaffID,
		appt.ServiceID,
		appt.SeriesID,
		appt.CustomerName,
		appt.CustomerPhone,
		appt.CustomerEmail,
		appt.StartsAt,
		appt.EndsAt,
		appt.BufferBeforeMin,
		appt.BufferAfterMin,
		appt.Status,
		appt.DepositCents,
		appt.PaymentStatus,
		appt.Notes,
		appt.CancelReason,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}

	if event != nil {
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

func (r *appointmentRepository) UpdateWithEvent(ctx context.Context, appt *model.Appointment, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin update transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE appointments
		SET staff_id = $1, starts_at = $2, ends_at = $3, status = $4,
			payment_status = $5, notes = $6, cancel_reason = $7, updated_at = $8
		WHERE id = $9
	`
	appt.UpdatedAt = time.Now()

	result, err := tx.ExecContext(ctx, query,
		appt.StaffID,
		appt.StartsAt,
		appt.EndsAt,
		appt.Status,
		appt.PaymentStatus,
		appt.Notes,
		appt.CancelReason,
		appt.UpdatedAt,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	if event != nil {
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit appointment update: %w", err)
	}
	return nil
}

// CancelFutureBySeries bulk-cancels and writes a cancellation outbox event
// per affected row in the same transaction, so every customer gets the same
// notification a single Cancel produces.
func (r *appointmentRepository) CancelFutureBySeries(ctx context.Context, seriesID uuid.UUID, from time.Time, reason string) ([]*model.Appointment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cancel transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE appointments
		SET status = 'canceled', cancel_reason = $1, updated_at = $2
		WHERE series_id = $3
		AND starts_at >= $4
		AND status IN ('pending', 'confirmed')
		RETURNING ` + appointmentColumns

	var canceled []*model.Appointment
	if err := tx.SelectContext(ctx, &canceled, query, reason, time.Now(), seriesID, from); err != nil {
		return nil, fmt.Errorf("failed to cancel future series appointments: %w", err)
	}

	for _, appt := range canceled {
		event, err := model.NewOutboxEvent(model.EventAppointmentCanceled, appt)
		if err != nil {
			return nil, fmt.Errorf("failed to build cancel event: %w", err)
		}
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit series cancellation: %w", err)
	}
	return canceled, nil
}

func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, created_at, updated_at, retry_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
		event.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
