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

func (r *availabilityRepository) CreateRule(ctx context.Context, rule *model.AvailabilityRule) error {
	query := `
		INSERT INTO availability_rules (
			id, business_id, staff_id, weekday, start_time, end_time,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	rule.ID = uuid.New()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.BusinessID,
		rule.StaffID,
		rule.Weekday,
		rule.StartTime,
		rule.EndTime,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability rule: %w", err)
	}
	return nil
}

func (r *availabilityRepository) GetRule(ctx context.Context, id uuid.UUID) (*model.AvailabilityRule, error) {
	query := `
		SELECT id, business_id, staff_id, weekday, start_time, end_time,
			   created_at, updated_at
		FROM availability_rules
		WHERE id = $1
	`
	var rule model.AvailabilityRule
	err := r.db.GetContext(ctx, &rule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability rule: %w", err)
	}
	return &rule, nil
}

func (r *availabilityRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability rule: %w", err)
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

func (r *availabilityRepository) ListRules(ctx context.Context, businessID uuid.UUID) ([]*model.AvailabilityRule, error) {
	query := `
		SELECT id, business_id, staff_id, weekday, start_time, end_time,
			   created_at, updated_at
		FROM availability_rules
		WHERE business_id = $1
		ORDER BY weekday ASC, start_time ASC
	`
	var rules []*model.AvailabilityRule
	err := r.db.SelectContext(ctx, &rules, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability rules: %w", err)
	}
	return rules, nil
}

// UpsertException replaces any existing exception for the same
// (business, staff, date). The two partial unique indexes (staff null /
// staff not null) back the ON CONFLICT clauses.
func (r *availabilityRepository) UpsertException(ctx context.Context, exc *model.AvailabilityException) error {
	conflict := `(business_id, date) WHERE staff_id IS NULL`
	if exc.StaffID != nil {
		conflict = `(business_id, staff_id, date) WHERE staff_id IS NOT NULL`
	}
	query := fmt.Sprintf(`
		INSERT INTO availability_exceptions (
			id, business_id, staff_id, date, is_closed, start_time, end_time,
			reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT %s DO UPDATE
		SET is_closed = EXCLUDED.is_closed,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`, conflict)

	exc.CreatedAt = time.Now()
	exc.UpdatedAt = time.Now()
	if exc.ID == uuid.Nil {
		exc.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		exc.ID,
		exc.BusinessID,
		exc.StaffID,
		exc.Date,
		exc.IsClosed,
		exc.StartTime,
		exc.EndTime,
		exc.Reason,
		exc.CreatedAt,
		exc.UpdatedAt,
	).Scan(&exc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert availability exception: %w", err)
	}
	return nil
}

func (r *availabilityRepository) GetException(ctx context.Context, id uuid.UUID) (*model.AvailabilityException, error) {
	query := `
		SELECT id, business_id, staff_id, date, is_closed, start_time, end_time,
			   reason, created_at, updated_at
		FROM availability_exceptions
		WHERE id = $1
	`
	var exc model.AvailabilityException
	err := r.db.GetContext(ctx, &exc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability exception: %w", err)
	}
	return &exc, nil
}

func (r *availabilityRepository) DeleteException(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability exception: %w", err)
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

func (r *availabilityRepository) ListExceptions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error) {
	query := `
		SELECT id, business_id, staff_id, date, is_closed, start_time, end_time,
			   reason, created_at, updated_at
		FROM availability_exceptions
		WHERE business_id = $1
		AND date >= $2
		AND date <= $3
		ORDER BY date ASC, updated_at ASC
	`
	var exceptions []*model.AvailabilityException
	err := r.db.SelectContext(ctx, &exceptions, query, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability exceptions: %w", err)
	}
	return exceptions, nil
}
