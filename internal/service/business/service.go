package business

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
	"github.com/reservapr/booking-api/internal/service/scheduling"
)

type Service struct {
	repo  repository.BusinessRepository
	cache *gocache.Cache
}

func NewService(repo repository.BusinessRepository, cache *gocache.Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Create(ctx context.Context, req *model.CreateBusinessRequest) (*model.Business, error) {
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, fmt.Errorf("invalid business: unknown timezone %q", req.Timezone)
	}

	business := &model.Business{
		Name:               req.Name,
		Timezone:           req.Timezone,
		ContactEmail:       req.ContactEmail,
		ContactPhone:       req.ContactPhone,
		BookingNoticeMin:   req.BookingNoticeMin,
		BookingHorizonDays: req.BookingHorizonDays,
		IsActive:           true,
	}
	if err := s.repo.Create(ctx, business); err != nil {
		return nil, fmt.Errorf("failed to create business: %w", err)
	}
	return business, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateBusinessRequest) (*model.Business, error) {
	business, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		business.Name = *req.Name
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, fmt.Errorf("invalid business: unknown timezone %q", *req.Timezone)
		}
		business.Timezone = *req.Timezone
	}
	if req.ContactEmail != nil {
		business.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		business.ContactPhone = *req.ContactPhone
	}
	if req.BookingNoticeMin != nil {
		business.BookingNoticeMin = *req.BookingNoticeMin
	}
	if req.BookingHorizonDays != nil {
		business.BookingHorizonDays = *req.BookingHorizonDays
	}
	if req.IsActive != nil {
		business.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, business); err != nil {
		return nil, fmt.Errorf("failed to update business: %w", err)
	}

	// The scheduling path caches the business record; drop it so timezone
	// and notice changes apply to the next slot computation.
	s.cache.Delete(scheduling.BusinessCacheKey(id))
	return business, nil
}
