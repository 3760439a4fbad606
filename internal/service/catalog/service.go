// Package catalog manages the bookable service offerings of a business.
// Validation here is the write boundary the slot generator relies on:
// misconfigured durations or buffers never reach slot computation.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
)

type Service struct {
	repo repository.ServiceRepository
}

func NewService(repo repository.ServiceRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, businessID uuid.UUID, req *model.CreateServiceRequest) (*model.Service, error) {
	if req.DurationMin <= 0 {
		return nil, fmt.Errorf("invalid service: duration must be positive")
	}
	maxPerSlot := req.MaxPerSlot
	if maxPerSlot == 0 {
		maxPerSlot = 1
	}

	svc := &model.Service{
		BusinessID:      businessID,
		Name:            req.Name,
		Description:     req.Description,
		DurationMin:     req.DurationMin,
		PriceCents:      req.PriceCents,
		DepositCents:    req.DepositCents,
		BufferBeforeMin: req.BufferBeforeMin,
		BufferAfterMin:  req.BufferAfterMin,
		MaxPerSlot:      maxPerSlot,
		IsActive:        true,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByBusiness(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	return s.repo.ListByBusiness(ctx, businessID, activeOnly)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateServiceRequest) (*model.Service, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.DurationMin != nil {
		if *req.DurationMin <= 0 {
			return nil, fmt.Errorf("invalid service: duration must be positive")
		}
		svc.DurationMin = *req.DurationMin
	}
	if req.PriceCents != nil {
		svc.PriceCents = *req.PriceCents
	}
	if req.DepositCents != nil {
		svc.DepositCents = *req.DepositCents
	}
	if req.BufferBeforeMin != nil {
		svc.BufferBeforeMin = *req.BufferBeforeMin
	}
	if req.BufferAfterMin != nil {
		svc.BufferAfterMin = *req.BufferAfterMin
	}
	if req.MaxPerSlot != nil {
		if *req.MaxPerSlot < 1 {
			return nil, fmt.Errorf("invalid service: max_per_slot must be at least 1")
		}
		svc.MaxPerSlot = *req.MaxPerSlot
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return svc, nil
}

// Deactivate soft-disables a service so history keeps its reference.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !svc.IsActive {
		return nil
	}
	svc.IsActive = false
	if err := s.repo.Update(ctx, svc); err != nil {
		return fmt.Errorf("failed to deactivate service: %w", err)
	}
	return nil
}
