package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
	"github.com/reservapr/booking-api/internal/service/availability"
	"github.com/reservapr/booking-api/internal/timeutil"
)

// ErrSlotUnavailable is the conflict condition surfaced to booking callers:
// the requested start is no longer bookable and the user must pick another
// time. Never retried server-side.
var ErrSlotUnavailable = repository.ErrSlotUnavailable

// ErrPastStart rejects bookings that start before now plus the business's
// booking notice.
var ErrPastStart = errors.New("requested start is in the past")

// businessCacheTTL bounds how stale a cached business record (timezone,
// notice, horizon) may get before the next read goes back to Postgres.
const businessCacheTTL = 5 * time.Minute

type Service struct {
	appointments repository.AppointmentRepository
	availability repository.AvailabilityRepository
	services     repository.ServiceRepository
	businesses   repository.BusinessRepository
	cache        *gocache.Cache
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	avail repository.AvailabilityRepository,
	services repository.ServiceRepository,
	businesses repository.BusinessRepository,
	cache *gocache.Cache,
	logger zerolog.Logger,
) *Service {
	return &Service{
		appointments: appointments,
		availability: avail,
		services:     services,
		businesses:   businesses,
		cache:        cache,
		logger:       logger.With().Str("component", "scheduling").Logger(),
		now:          time.Now,
	}
}

// businessCacheKey is shared with the business service, which deletes the
// entry on update so timezone changes take effect immediately.
func BusinessCacheKey(id uuid.UUID) string {
	return "business:" + id.String()
}

func (s *Service) getBusiness(ctx context.Context, id uuid.UUID) (*model.Business, *time.Location, error) {
	if cached, ok := s.cache.Get(BusinessCacheKey(id)); ok {
		business := cached.(*model.Business)
		loc, err := time.LoadLocation(business.Timezone)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid business timezone %q: %w", business.Timezone, err)
		}
		return business, loc, nil
	}

	business, err := s.businesses.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	loc, err := time.LoadLocation(business.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid business timezone %q: %w", business.Timezone, err)
	}
	s.cache.Set(BusinessCacheKey(id), business, businessCacheTTL)
	return business, loc, nil
}

// GenerateSlots computes the bookable start times for a service over a date
// range. Pure over stored state: recomputing with no intervening writes
// yields the same sequence. Unknown or inactive business/service resolves to
// an empty sequence, not an error.
func (s *Service) GenerateSlots(ctx context.Context, businessID, serviceID uuid.UUID, staffID *uuid.UUID, from, to time.Time) ([]model.Slot, error) {
	business, loc, err := s.getBusiness(ctx, businessID)
	if errors.Is(err, repository.ErrNotFound) {
		return []model.Slot{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !business.IsActive {
		return []model.Slot{}, nil
	}

	svc, err := s.services.Get(ctx, serviceID)
	if errors.Is(err, repository.ErrNotFound) {
		return []model.Slot{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !svc.IsActive || svc.BusinessID != businessID {
		return []model.Slot{}, nil
	}

	now := s.now()
	minStart := now.Add(time.Duration(business.BookingNoticeMin) * time.Minute)

	// from/to arrive as bare calendar dates parsed in UTC; reinterpret their
	// components on the business clock instead of converting the instants,
	// which would land on the previous local day west of UTC.
	fromDay := timeutil.DateIn(from, loc)
	toDay := timeutil.DateIn(to, loc)
	if today := timeutil.DateOf(now, loc); fromDay.Before(today) {
		fromDay = today
	}
	if business.BookingHorizonDays > 0 {
		horizon := timeutil.DateOf(now, loc).AddDate(0, 0, business.BookingHorizonDays)
		if toDay.After(horizon) {
			toDay = horizon
		}
	}
	if toDay.Before(fromDay) {
		return []model.Slot{}, nil
	}

	rules, err := s.availability.ListRules(ctx, businessID)
	if err != nil {
		return nil, err
	}
	// The exceptions date column stores plain calendar dates, so the range
	// bounds must be calendar dates too, not local midnights.
	exceptions, err := s.availability.ListExceptions(ctx, businessID,
		timeutil.DateIn(fromDay, time.UTC), timeutil.DateIn(toDay, time.UTC))
	if err != nil {
		return nil, err
	}

	// Pad the occupancy fetch by a day on both sides so buffers reaching
	// across midnight still count against edge candidates.
	busy, err := s.appointments.ListOccupying(ctx, businessID, staffID,
		fromDay.AddDate(0, 0, -1), toDay.AddDate(0, 0, 2))
	if err != nil {
		return nil, err
	}

	slots := []model.Slot{}
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		resolved := availability.ResolveDay(rules, exceptions, staffID, day)
		if !resolved.Open {
			continue
		}
		spans := availability.WindowSpans(resolved)
		slots = append(slots, buildDaySlots(day, spans, svc, busy, minStart, loc)...)
	}
	return slots, nil
}

// Book re-validates the requested start against current state inside a
// guarded transaction and creates the appointment, or fails with
// ErrSlotUnavailable. This closes the race between slot display and
// submission.
func (s *Service) Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	return s.book(ctx, req, nil)
}

func (s *Service) book(ctx context.Context, req *model.BookingRequest, seriesID *uuid.UUID) (*model.Appointment, error) {
	business, loc, err := s.getBusiness(ctx, req.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	if !business.IsActive {
		return nil, ErrSlotUnavailable
	}

	svc, err := s.services.Get(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if !svc.IsActive || svc.BusinessID != req.BusinessID {
		return nil, ErrSlotUnavailable
	}

	now := s.now()
	minStart := now.Add(time.Duration(business.BookingNoticeMin) * time.Minute)
	if !req.StartsAt.After(minStart) {
		return nil, ErrPastStart
	}
	if business.BookingHorizonDays > 0 {
		horizon := timeutil.DateOf(now, loc).AddDate(0, 0, business.BookingHorizonDays+1)
		if !req.StartsAt.Before(horizon) {
			return nil, ErrSlotUnavailable
		}
	}

	if ok, err := s.startWithinWindows(ctx, req.BusinessID, req.StaffID, req.StartsAt, svc, loc); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrSlotUnavailable
	}

	status := model.AppointmentStatusConfirmed
	if svc.RequiresDeposit() {
		// Deposit-backed bookings stay pending until the caller's payment
		// flow settles and confirms them.
		status = model.AppointmentStatusPending
	}

	appt := &model.Appointment{
		BusinessID:      req.BusinessID,
		StaffID:         req.StaffID,
		ServiceID:       req.ServiceID,
		SeriesID:        seriesID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		StartsAt:        req.StartsAt,
		EndsAt:          req.StartsAt.Add(time.Duration(svc.DurationMin) * time.Minute),
		BufferBeforeMin: svc.BufferBeforeMin,
		BufferAfterMin:  svc.BufferAfterMin,
		Status:          status,
		DepositCents:    svc.DepositCents,
		PaymentStatus:   model.PaymentStatusUnpaid,
		Notes:           req.Notes,
	}
	appt.ID = uuid.New()

	event, err := model.NewOutboxEvent(model.EventAppointmentBooked, appt)
	if err != nil {
		return nil, fmt.Errorf("failed to build booking event: %w", err)
	}

	if err := s.appointments.BookGuarded(ctx, appt, svc.MaxPerSlot, event); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			s.logger.Info().
				Str("business_id", req.BusinessID.String()).
				Time("starts_at", req.StartsAt).
				Msg("booking rejected, slot full")
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("business_id", appt.BusinessID.String()).
		Time("starts_at", appt.StartsAt).
		Str("status", string(appt.Status)).
		Msg("appointment booked")
	return appt, nil
}

// BookOccurrence books on behalf of the recurring expander, tagging the
// appointment with its series. Occurrences go through the same guarded
// validity check as a manual booking.
func (s *Service) BookOccurrence(ctx context.Context, series *model.RecurringSeries, startsAt time.Time) (*model.Appointment, error) {
	return s.book(ctx, &model.BookingRequest{
		BusinessID:    series.BusinessID,
		ServiceID:     series.ServiceID,
		StaffID:       series.StaffID,
		StartsAt:      startsAt,
		CustomerName:  series.CustomerName,
		CustomerPhone: series.CustomerPhone,
		CustomerEmail: series.CustomerEmail,
		Notes:         series.Notes,
	}, &series.ID)
}

// startWithinWindows checks that the requested start and the full service
// duration fit one of the day's resolved open windows.
func (s *Service) startWithinWindows(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, startsAt time.Time, svc *model.Service, loc *time.Location) (bool, error) {
	day := timeutil.DateOf(startsAt, loc)

	rules, err := s.availability.ListRules(ctx, businessID)
	if err != nil {
		return false, err
	}
	excDay := timeutil.DateIn(day, time.UTC)
	exceptions, err := s.availability.ListExceptions(ctx, businessID, excDay, excDay)
	if err != nil {
		return false, err
	}

	resolved := availability.ResolveDay(rules, exceptions, staffID, day)
	if !resolved.Open {
		return false, nil
	}

	local := startsAt.In(loc)
	startMin := local.Hour()*60 + local.Minute()
	for _, span := range availability.WindowSpans(resolved) {
		if startMin >= span.Start && startMin+svc.DurationMin <= span.End {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appointments.Get(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.appointments.List(ctx, filters)
}

// Cancel frees the appointment's interval. Completed appointments cannot be
// canceled; canceling twice is rejected.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch appt.Status {
	case model.AppointmentStatusCanceled:
		return nil, fmt.Errorf("appointment is already canceled")
	case model.AppointmentStatusCompleted:
		return nil, fmt.Errorf("cannot cancel a completed appointment")
	}

	appt.Status = model.AppointmentStatusCanceled
	appt.CancelReason = &reason

	event, err := model.NewOutboxEvent(model.EventAppointmentCanceled, appt)
	if err != nil {
		return nil, fmt.Errorf("failed to build cancel event: %w", err)
	}
	if err := s.appointments.UpdateWithEvent(ctx, appt, event); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("reason", reason).
		Msg("appointment canceled")
	return appt, nil
}

// Confirm moves a pending (deposit-backed) appointment to confirmed, marking
// the deposit as settled.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.AppointmentStatusPending {
		return nil, fmt.Errorf("only pending appointments can be confirmed")
	}

	appt.Status = model.AppointmentStatusConfirmed
	if appt.DepositCents > 0 {
		appt.PaymentStatus = model.PaymentStatusPaid
	}

	event, err := model.NewOutboxEvent(model.EventAppointmentConfirmed, appt)
	if err != nil {
		return nil, fmt.Errorf("failed to build confirm event: %w", err)
	}
	if err := s.appointments.UpdateWithEvent(ctx, appt, event); err != nil {
		return nil, fmt.Errorf("failed to confirm appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.AppointmentStatusPending && appt.Status != model.AppointmentStatusConfirmed {
		return nil, fmt.Errorf("only pending or confirmed appointments can be completed")
	}

	appt.Status = model.AppointmentStatusCompleted
	if err := s.appointments.UpdateWithEvent(ctx, appt, nil); err != nil {
		return nil, fmt.Errorf("failed to complete appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.AppointmentStatusPending && appt.Status != model.AppointmentStatusConfirmed {
		return nil, fmt.Errorf("only pending or confirmed appointments can be marked no-show")
	}

	appt.Status = model.AppointmentStatusNoShow
	if err := s.appointments.UpdateWithEvent(ctx, appt, nil); err != nil {
		return nil, fmt.Errorf("failed to mark appointment no-show: %w", err)
	}
	return appt, nil
}
