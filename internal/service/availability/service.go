package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
	"github.com/reservapr/booking-api/internal/timeutil"
)

// MaxSummaryRangeDays bounds day-summary queries so a calendar client cannot
// ask for years of resolution in one request.
const MaxSummaryRangeDays = 92

type Service struct {
	repo   repository.AvailabilityRepository
	logger zerolog.Logger
}

func NewService(repo repository.AvailabilityRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "availability").Logger()}
}

func (s *Service) CreateRule(ctx context.Context, businessID uuid.UUID, req *model.CreateRuleRequest) (*model.AvailabilityRule, error) {
	startMin, err := timeutil.ParseHHMM(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	endMin, err := timeutil.ParseHHMM(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	if startMin >= endMin {
		return nil, fmt.Errorf("invalid rule: start_time must be before end_time")
	}

	rule := &model.AvailabilityRule{
		BusinessID: businessID,
		StaffID:    req.StaffID,
		Weekday:    *req.Weekday,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	s.logger.Info().
		Str("business_id", businessID.String()).
		Int("weekday", rule.Weekday).
		Str("window", rule.StartTime+"-"+rule.EndTime).
		Msg("availability rule created")
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

func (s *Service) ListRules(ctx context.Context, businessID uuid.UUID) ([]*model.AvailabilityRule, error) {
	rules, err := s.repo.ListRules(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

func (s *Service) UpsertException(ctx context.Context, businessID uuid.UUID, req *model.UpsertExceptionRequest) (*model.AvailabilityException, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid exception: %w", err)
	}

	exc := &model.AvailabilityException{
		BusinessID: businessID,
		StaffID:    req.StaffID,
		Date:       date,
		IsClosed:   req.IsClosed,
		Reason:     model.ExceptionReason(req.Reason),
	}
	if exc.Reason == "" {
		exc.Reason = model.ExceptionReasonOther
	}

	if req.IsClosed {
		// Closed days carry no hours, whatever the caller sent.
		exc.StartTime = nil
		exc.EndTime = nil
	} else {
		if req.StartTime == nil || req.EndTime == nil {
			return nil, fmt.Errorf("invalid exception: custom hours require start_time and end_time")
		}
		startMin, err := timeutil.ParseHHMM(*req.StartTime)
		if err != nil {
			return nil, fmt.Errorf("invalid exception: %w", err)
		}
		endMin, err := timeutil.ParseHHMM(*req.EndTime)
		if err != nil {
			return nil, fmt.Errorf("invalid exception: %w", err)
		}
		if startMin >= endMin {
			return nil, fmt.Errorf("invalid exception: start_time must be before end_time")
		}
		exc.StartTime = req.StartTime
		exc.EndTime = req.EndTime
	}

	if err := s.repo.UpsertException(ctx, exc); err != nil {
		return nil, fmt.Errorf("failed to upsert exception: %w", err)
	}

	s.logger.Info().
		Str("business_id", businessID.String()).
		Str("date", req.Date).
		Bool("is_closed", exc.IsClosed).
		Msg("availability exception saved")
	return exc, nil
}

func (s *Service) DeleteException(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteException(ctx, id); err != nil {
		return fmt.Errorf("failed to delete exception: %w", err)
	}
	return nil
}

func (s *Service) ListExceptions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error) {
	exceptions, err := s.repo.ListExceptions(ctx, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	return exceptions, nil
}

// ResolveDay resolves a single date against stored rules and exceptions.
func (s *Service) ResolveDay(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, date time.Time) (model.DayAvailability, error) {
	days, err := s.ResolveRange(ctx, businessID, staffID, date, date)
	if err != nil {
		return model.DayAvailability{}, err
	}
	return days[0], nil
}

// ResolveRange resolves every date in [from, to] for calendar indicators.
// One rules query and one exceptions query feed the whole range.
func (s *Service) ResolveRange(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, from, to time.Time) ([]model.DayAvailability, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: to is before from")
	}
	if int(to.Sub(from).Hours()/24) > MaxSummaryRangeDays {
		return nil, fmt.Errorf("invalid range: more than %d days", MaxSummaryRangeDays)
	}

	rules, err := s.repo.ListRules(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	exceptions, err := s.repo.ListExceptions(ctx, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}

	var days []model.DayAvailability
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, ResolveDay(rules, exceptions, staffID, d))
	}
	return days, nil
}
