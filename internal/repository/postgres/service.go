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

func (r *serviceRepository) Create(ctx context.Context, svc *model.Service) error {
	query := `
		INSERT INTO services (
			id, business_id, name, description, duration_min, price_cents,
			deposit_cents, buffer_before_min, buffer_after_min, max_per_slot,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	svc.ID = uuid.New()
	svc.CreatedAt = time.Now()
	svc.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		svc.ID,
		svc.BusinessID,
		svc.Name,
		svc.Description,
		svc.DurationMin,
		svc.PriceCents,
		svc.DepositCents,
		svc.BufferBeforeMin,
		svc.BufferAfterMin,
		svc.MaxPerSlot,
		svc.IsActive,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *serviceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	query := `
		SELECT id, business_id, name, description, duration_min, price_cents,
			   deposit_cents, buffer_before_min, buffer_after_min, max_per_slot,
			   is_active, created_at, updated_at
		FROM services
		WHERE id = $1
	`
	var svc model.Service
	err := r.db.GetContext(ctx, &svc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &svc, nil
}

func (r *serviceRepository) Update(ctx context.Context, svc *model.Service) error {
	query := `
		UPDATE services
		SET name = $1, description = $2, duration_min = $3, price_cents = $4,
			deposit_cents = $5, buffer_before_min = $6, buffer_after_min = $7,
			max_per_slot = $8, is_active = $9, updated_at = $10
		WHERE id = $11
	`
	svc.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		svc.Name,
		svc.Description,
		svc.DurationMin,
		svc.PriceCents,
		svc.DepositCents,
		svc.BufferBeforeMin,
		svc.BufferAfterMin,
		svc.MaxPerSlot,
		svc.IsActive,
		svc.UpdatedAt,
		svc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
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

func (r *serviceRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	query := `
		SELECT id, business_id, name, description, duration_min, price_cents,
			   deposit_cents, buffer_before_min, buffer_after_min, max_per_slot,
			   is_active, created_at, updated_at
		FROM services
		WHERE business_id = $1
	`
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY name ASC"

	var services []*model.Service
	err := r.db.SelectContext(ctx, &services, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
