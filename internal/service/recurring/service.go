package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
	"github.com/reservapr/booking-api/internal/service/event"
	"github.com/reservapr/booking-api/internal/timeutil"
)

// Booker is the slice of the scheduling service the expander needs: every
// generated occurrence passes through the same guarded booking path as a
// manual booking.
type Booker interface {
	BookOccurrence(ctx context.Context, series *model.RecurringSeries, startsAt time.Time) (*model.Appointment, error)
}

type Service struct {
	repo         repository.RecurringRepository
	appointments repository.AppointmentRepository
	services     repository.ServiceRepository
	businesses   repository.BusinessRepository
	events       *event.Service
	booker       Booker
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(
	repo repository.RecurringRepository,
	appointments repository.AppointmentRepository,
	services repository.ServiceRepository,
	businesses repository.BusinessRepository,
	events *event.Service,
	booker Booker,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		services:     services,
		businesses:   businesses,
		events:       events,
		booker:       booker,
		logger:       logger.With().Str("component", "recurring").Logger(),
		now:          time.Now,
	}
}

func (s *Service) Create(ctx context.Context, businessID uuid.UUID, req *model.CreateSeriesRequest) (*model.RecurringSeries, error) {
	svc, err := s.services.Get(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if svc.BusinessID != businessID || !svc.IsActive {
		return nil, fmt.Errorf("invalid series: service does not belong to business or is inactive")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}
	var endDate *time.Time
	if req.EndDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid series: %w", err)
		}
		if parsed.Before(startDate) {
			return nil, fmt.Errorf("invalid series: end_date is before start_date")
		}
		endDate = &parsed
	}
	if _, err := timeutil.ParseHHMM(req.TimeOfDay); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}

	series := &model.RecurringSeries{
		BusinessID:    businessID,
		ServiceID:     req.ServiceID,
		StaffID:       req.StaffID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Frequency:     model.Frequency(req.Frequency),
		StartDate:     startDate,
		EndDate:       endDate,
		TimeOfDay:     req.TimeOfDay,
		Notes:         req.Notes,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, series); err != nil {
		return nil, fmt.Errorf("failed to create series: %w", err)
	}

	s.logger.Info().
		Str("series_id", series.ID.String()).
		Str("business_id", businessID.String()).
		Str("frequency", req.Frequency).
		Msg("recurring series created")
	return series, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.RecurringSeries, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.RecurringSeries, error) {
	return s.repo.ListByBusiness(ctx, businessID)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateSeriesRequest) (*model.RecurringSeries, error) {
	series, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.StaffID != nil {
		series.StaffID = req.StaffID
	}
	if req.CustomerName != nil {
		series.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		series.CustomerPhone = *req.CustomerPhone
	}
	if req.CustomerEmail != nil {
		series.CustomerEmail = req.CustomerEmail
	}
	if req.EndDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid series: %w", err)
		}
		series.EndDate = &parsed
	}
	if req.TimeOfDay != nil {
		if _, err := timeutil.ParseHHMM(*req.TimeOfDay); err != nil {
			return nil, fmt.Errorf("invalid series: %w", err)
		}
		series.TimeOfDay = *req.TimeOfDay
	}
	if req.Notes != nil {
		series.Notes = *req.Notes
	}
	if req.IsActive != nil {
		series.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, series); err != nil {
		return nil, fmt.Errorf("failed to update series: %w", err)
	}
	return series, nil
}

// Deactivate stops future generation. With cancelFuture, not-yet-started
// generated appointments are canceled too; past occurrences are never
// touched.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, cancelFuture bool) error {
	series, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	series.IsActive = false
	if err := s.repo.Update(ctx, series); err != nil {
		return fmt.Errorf("failed to deactivate series: %w", err)
	}

	if cancelFuture {
		canceled, err := s.appointments.CancelFutureBySeries(ctx, id, s.now(), "series deactivated")
		if err != nil {
			return fmt.Errorf("failed to cancel future occurrences: %w", err)
		}
		s.logger.Info().
			Str("series_id", id.String()).
			Int("canceled", len(canceled)).
			Msg("future series occurrences canceled")
	}
	return nil
}

// skippedOccurrence is the outbox payload surfaced to the dashboard when a
// generated occurrence could not be booked (a closure was added after the
// series was created, or the slot filled up).
type skippedOccurrence struct {
	SeriesID   uuid.UUID `json:"series_id"`
	BusinessID uuid.UUID `json:"business_id"`
	StartsAt   time.Time `json:"starts_at"`
	Reason     string    `json:"reason"`
}

// ExpandStats summarizes one expander sweep.
type ExpandStats struct {
	Generated int
	Skipped   int
	Failed    int
}

// ExpandAll materializes upcoming occurrences for every active series,
// looking horizonDays ahead. Blocked occurrences are skipped and flagged,
// never silently double-booked. One broken series does not stop the sweep.
func (s *Service) ExpandAll(ctx context.Context, horizonDays int) (ExpandStats, error) {
	var stats ExpandStats

	series, err := s.repo.ListActive(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list active series: %w", err)
	}

	for _, sr := range series {
		generated, skipped, err := s.expandSeries(ctx, sr, horizonDays)
		stats.Generated += generated
		stats.Skipped += skipped
		if err != nil {
			stats.Failed++
			s.logger.Error().Err(err).
				Str("series_id", sr.ID.String()).
				Msg("failed to expand series")
		}
	}
	return stats, nil
}

func (s *Service) expandSeries(ctx context.Context, series *model.RecurringSeries, horizonDays int) (generated, skipped int, err error) {
	business, err := s.businesses.Get(ctx, series.BusinessID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load business: %w", err)
	}
	loc, err := time.LoadLocation(business.Timezone)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid business timezone %q: %w", business.Timezone, err)
	}

	timeOfDay, err := timeutil.ParseHHMM(series.TimeOfDay)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid series time_of_day: %w", err)
	}

	now := s.now()
	horizon := timeutil.DateOf(now, loc).AddDate(0, 0, horizonDays)

	// Resume from the persisted cursor. Skipped and elapsed dates advance it
	// too, so a blocked occurrence is flagged once, not on every sweep. A
	// fresh series starts one cadence after start_date: the start_date visit
	// is the booking the series was created from, not a generated one.
	from := NextOccurrence(series.StartDate, series.StartDate, series.Frequency)
	if series.LastExpandedDate != nil {
		from = NextOccurrence(*series.LastExpandedDate, series.StartDate, series.Frequency)
	}

	var visited time.Time
	defer func() {
		if visited.IsZero() {
			return
		}
		if cursorErr := s.repo.AdvanceCursor(ctx, series.ID, visited); cursorErr != nil {
			s.logger.Error().Err(cursorErr).
				Str("series_id", series.ID.String()).
				Msg("failed to advance series cursor")
		}
	}()

	for date := from; !date.After(horizon); date = NextOccurrence(date, series.StartDate, series.Frequency) {
		if series.EndDate != nil && date.After(*series.EndDate) {
			break
		}
		startsAt := timeutil.OnDate(date, timeOfDay, loc)
		if !startsAt.After(now) {
			visited = date
			continue
		}

		_, err := s.booker.BookOccurrence(ctx, series, startsAt)
		if err == nil {
			generated++
			visited = date
			continue
		}
		if errors.Is(err, repository.ErrSlotUnavailable) {
			if flagErr := s.flagSkipped(ctx, series, startsAt, "slot unavailable"); flagErr != nil {
				return generated, skipped, flagErr
			}
			skipped++
			visited = date
			continue
		}
		return generated, skipped, fmt.Errorf("failed to book occurrence at %s: %w", startsAt, err)
	}
	return generated, skipped, nil
}

func (s *Service) flagSkipped(ctx context.Context, series *model.RecurringSeries, startsAt time.Time, reason string) error {
	err := s.events.Record(ctx, model.EventOccurrenceSkipped, skippedOccurrence{
		SeriesID:   series.ID,
		BusinessID: series.BusinessID,
		StartsAt:   startsAt,
		Reason:     reason,
	})
	if err != nil {
		return fmt.Errorf("failed to record skipped occurrence: %w", err)
	}
	s.logger.Warn().
		Str("series_id", series.ID.String()).
		Time("starts_at", startsAt).
		Str("reason", reason).
		Msg("recurring occurrence skipped")
	return nil
}

// NextOccurrence steps one cadence forward from date. Monthly series anchor
// to the start date's day-of-month and skip months that lack it (a series on
// the 31st never lands on the 1st).
func NextOccurrence(date, anchor time.Time, freq model.Frequency) time.Time {
	switch freq {
	case model.FrequencyWeekly:
		return date.AddDate(0, 0, 7)
	case model.FrequencyBiweekly:
		return date.AddDate(0, 0, 14)
	case model.FrequencyMonthly:
		day := anchor.Day()
		year, month := date.Year(), date.Month()
		for {
			month++
			if month > time.December {
				month = time.January
				year++
			}
			if day <= daysInMonth(year, month) {
				return time.Date(year, month, day, 0, 0, 0, 0, date.Location())
			}
		}
	default:
		return date.AddDate(0, 0, 7)
	}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
