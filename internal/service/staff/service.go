package staff

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
)

type Service struct {
	repo repository.StaffRepository
}

func NewService(repo repository.StaffRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, businessID uuid.UUID, req *model.CreateStaffRequest) (*model.Staff, error) {
	member := &model.Staff{
		BusinessID: businessID,
		Name:       req.Name,
		Role:       req.Role,
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create staff: %w", err)
	}
	return member, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Staff, error) {
	return s.repo.ListByBusiness(ctx, businessID)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateStaffRequest) (*model.Staff, error) {
	member, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		member.Name = *req.Name
	}
	if req.Role != nil {
		member.Role = *req.Role
	}
	if req.IsActive != nil {
		member.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to update staff: %w", err)
	}
	return member, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
