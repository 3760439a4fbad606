package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
)

const seriesColumns = `
	id, business_id, service_id, staff_id,
	customer_name, customer_phone, customer_email,
	frequency, start_date, end_date, time_of_day, notes, is_active,
	last_expanded_date, created_at, updated_at
`

func (r *recurringRepository) Create(ctx context.Context, series *model.RecurringSeries) error {
	query := `
		INSERT INTO recurring_series (
			id, business_id, service_id, staff_id,
			customer_name, customer_phone, customer_email,
			frequency, start_date, end_date, time_of_day, notes, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	series.ID = uuid.New()
	series.CreatedAt = time.Now()
	series.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		series.ID,
		series.BusinessID,
		series.ServiceID,
		series.StaffID,
		series.CustomerName,
		series.CustomerPhone,
		series.CustomerEmail,
		series.Frequency,
		series.StartDate,
		series.EndDate,
		series.TimeOfDay,
		series.Notes,
		series.IsActive,
		series.CreatedAt,
		series.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recurring series: %w", err)
	}
	return nil
}

func (r *recurringRepository) Get(ctx context.Context, id uuid.UUID) (*model.RecurringSeries, error) {
	query := `SELECT ` + seriesColumns + ` FROM recurring_series WHERE id = $1`

	var series model.RecurringSeries
	err := r.db.GetContext(ctx, &series, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring series: %w", err)
	}
	return &series, nil
}

func (r *recurringRepository) Update(ctx context.Context, series *model.RecurringSeries) error {
	query := `
		UPDATE recurring_series
		SET staff_id = $1, customer_name = $2, customer_phone = $3,
			customer_email = $4, end_date = $5, time_of_day = $6, notes = $7,
			is_active = $8, updated_at = $9
		WHERE id = $10
	`
	series.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		series.StaffID,
		series.CustomerName,
		series.CustomerPhone,
		series.CustomerEmail,
		series.EndDate,
		series.TimeOfDay,
		series.Notes,
		series.IsActive,
		series.UpdatedAt,
		series.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring series: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AdvanceCursor moves the expansion cursor forward. The guard keeps it
// monotonic when sweeps overlap.
func (r *recurringRepository) AdvanceCursor(ctx context.Context, id uuid.UUID, date time.Time) error {
	query := `
		UPDATE recurring_series
		SET last_expanded_date = $1, updated_at = $2
		WHERE id = $3
		AND (last_expanded_date IS NULL OR last_expanded_date < $1)
	`
	if _, err := r.db.ExecContext(ctx, query, date, time.Now(), id); err != nil {
		return fmt.Errorf("failed to advance series cursor: %w", err)
	}
	return nil
}

func (r *recurringRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.RecurringSeries, error) {
	query := `SELECT ` + seriesColumns + `
		FROM recurring_series
		WHERE business_id = $1
		ORDER BY created_at DESC
	`
	var series []*model.RecurringSeries
	err := r.db.SelectContext(ctx, &series, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring series: %w", err)
	}
	return series, nil
}

func (r *recurringRepository) ListActive(ctx context.Context) ([]*model.RecurringSeries, error) {
	query := `SELECT ` + seriesColumns + `
		FROM recurring_series
		WHERE is_active = TRUE
		AND (end_date IS NULL OR end_date >= CURRENT_DATE)
		ORDER BY business_id, created_at
	`
	var series []*model.RecurringSeries
	err := r.db.SelectContext(ctx, &series, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active recurring series: %w", err)
	}
	return series, nil
}
